package models

// Cluster is an HPC site known to the manager.
type Cluster struct {
	ID   string `gorm:"primaryKey;size:64"`
	Name string `gorm:"size:128;not null"`
}

// Component is a named process running against a cluster, such as a detector
// or an adjustor. The ID convention is "{cluster}_{service}" but it is stored
// explicitly.
type Component struct {
	ID      string `gorm:"primaryKey;size:64"`
	Name    string `gorm:"size:128;not null"`
	Cluster string `gorm:"size:64;not null;index"`
	Service string `gorm:"size:32;not null"`

	ClusterRef Cluster `gorm:"foreignKey:Cluster"`
}

// APIKey is an HMAC key pair bound to exactly one component. The secret is
// only ever read back for signature verification. LastUsed is epoch seconds
// of the most recent authenticated request.
type APIKey struct {
	Access    string `gorm:"primaryKey;size:64"`
	Secret    string `gorm:"size:128;not null"`
	Component string `gorm:"size:64;not null;index"`
	LastUsed  *int64 `gorm:"column:lastused"`

	ComponentRef Component `gorm:"foreignKey:Component"`
}

// TableName keeps the table name used by the wire protocol documentation.
func (APIKey) TableName() string { return "apikeys" }
