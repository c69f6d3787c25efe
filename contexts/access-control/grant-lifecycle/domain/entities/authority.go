package entities

// Realm is the tenant scope (guild/server) a grant applies to.
type Realm struct {
	RealmID int64
	Name    string
}

// Member is a principal resolved inside a realm.
type Member struct {
	PrincipalID int64
	RealmID     int64
	DisplayName string
}

// Role is a realm role eligible for temporary assignment.
type Role struct {
	RoleID  int64
	RealmID int64
	Name    string
}
