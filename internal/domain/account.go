package domain

import (
	"errors"
	"time"
)

// Role represents which side of the marketplace an account is on.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleDriver   Role = "driver"
	RoleWorkshop Role = "workshop"
)

// ErrProfileMismatch is returned when an account carries a profile for a role it does not have.
var ErrProfileMismatch = errors.New("account profile does not match role")

// ParseRole converts a raw string to a Role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleOwner, RoleDriver, RoleWorkshop:
		return Role(s), true
	}
	return "", false
}

// Sender returns the chat sender tag used for messages written by this role.
func (r Role) Sender() Sender {
	switch r {
	case RoleDriver:
		return SenderDriver
	case RoleWorkshop:
		return SenderWorkshop
	default:
		return SenderUser
	}
}

// Notification is an entry in an account's inbox.
type Notification struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Read    bool   `json:"read"`
	Time    string `json:"time"`
}

// Car is a vehicle in an owner's garage.
type Car struct {
	ID     int64  `json:"id"`
	NameEn string `json:"nameEn"`
	NameAr string `json:"nameAr"`
	Year   int    `json:"year"`
	Color  string `json:"color"`
	Plate  string `json:"plate"`
	Photo  string `json:"photo,omitempty"`
}

// OwnerProfile holds car-owner specific data.
type OwnerProfile struct {
	Garage []Car `json:"garage"`
}

// DriverProfile holds flatbed-driver specific data.
type DriverProfile struct {
	FlatbedPlate string  `json:"flatbedPlate,omitempty"`
	FlatbedPhoto string  `json:"flatbedPhoto,omitempty"`
	FlatbedLat   float64 `json:"flatbedLat,omitempty"`
	FlatbedLng   float64 `json:"flatbedLng,omitempty"`
}

// WorkshopProfile holds repair-workshop specific data.
type WorkshopProfile struct {
	WorkshopPhone    string  `json:"workshopPhone"`
	WorkshopLat      float64 `json:"workshopLat"`
	WorkshopLng      float64 `json:"workshopLng"`
	CommercialReg    string  `json:"commercialReg,omitempty"`
	MunicipalLicense string  `json:"municipalLicense,omitempty"`
}

// Account is a registered user. Exactly one of Owner, Driver or Workshop is
// set, selected by Role.
type Account struct {
	Name          string         `json:"name"`
	Username      string         `json:"username"`
	Email         string         `json:"email"`
	PasswordHash  string         `json:"passwordHash"`
	Role          Role           `json:"role"`
	JoinDate      string         `json:"joinDate"`
	WalletBalance int            `json:"walletBalance"`
	Notifications []Notification `json:"notifications"`
	CreatedAt     time.Time      `json:"createdAt"`

	Owner    *OwnerProfile    `json:"owner,omitempty"`
	Driver   *DriverProfile   `json:"driver,omitempty"`
	Workshop *WorkshopProfile `json:"workshop,omitempty"`
}

// Validate checks the role/profile pairing.
func (a *Account) Validate() error {
	switch a.Role {
	case RoleOwner:
		if a.Driver != nil || a.Workshop != nil {
			return ErrProfileMismatch
		}
	case RoleDriver:
		if a.Owner != nil || a.Workshop != nil {
			return ErrProfileMismatch
		}
	case RoleWorkshop:
		if a.Owner != nil || a.Driver != nil {
			return ErrProfileMismatch
		}
	default:
		return ErrProfileMismatch
	}
	return nil
}

// Notify prepends a notification to the inbox, newest first.
func (a *Account) Notify(n Notification) {
	a.Notifications = append([]Notification{n}, a.Notifications...)
}

// UnreadCount returns the number of unread notifications.
func (a *Account) UnreadCount() int {
	n := 0
	for _, notif := range a.Notifications {
		if !notif.Read {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Notifications = append([]Notification(nil), a.Notifications...)
	if a.Owner != nil {
		o := *a.Owner
		o.Garage = append([]Car(nil), a.Owner.Garage...)
		c.Owner = &o
	}
	if a.Driver != nil {
		d := *a.Driver
		c.Driver = &d
	}
	if a.Workshop != nil {
		w := *a.Workshop
		c.Workshop = &w
	}
	return &c
}
