// Package ports defines the contracts between the lifecycle core and the outside:
// repositories and the unit of work for persistence, and the collaborator interfaces
// for payment, kitchen, courier, notification and real-time broadcast.
package ports
