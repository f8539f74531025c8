package models

// Directory read models. These tables are owned by the enrollment system;
// the billing engine only reads display data from them when rendering
// documents. No domain entities map to them.

// StudentModel carries the display data of a student.
type StudentModel struct {
	BaseModel
	FirstName string `gorm:"type:varchar(100);not null"`
	LastName  string `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (StudentModel) TableName() string {
	return "students"
}

// FullName returns the student's display name.
func (m *StudentModel) FullName() string {
	if m.FirstName == "" {
		return m.LastName
	}
	if m.LastName == "" {
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}

// CampusModel carries the display data of a campus.
type CampusModel struct {
	BaseModel
	Name string `gorm:"type:varchar(200);not null"`
	Code string `gorm:"type:varchar(20);not null;uniqueIndex"`
}

// TableName returns the table name for GORM
func (CampusModel) TableName() string {
	return "campuses"
}

// CashierModel carries the display data of a cashier account.
type CashierModel struct {
	BaseModel
	Name string `gorm:"type:varchar(200);not null"`
}

// TableName returns the table name for GORM
func (CashierModel) TableName() string {
	return "cashiers"
}
