package Models

import "gorm.io/gorm"

// Permission levels. Field agents submit custody events for their own tasks;
// operations staff review flagged deliveries; admins manage users.
const (
	PermissionAgent = 1
	PermissionOps   = 3
	PermissionAdmin = 4
)

type User struct {
	gorm.Model
	Name       string `json:"name"`
	Email      string `json:"email" gorm:"uniqueIndex;not null"`
	Password   []byte `json:"-"`
	Permission int    `json:"permission" gorm:"default:1"`
	Phone      string `json:"phone"`
}
