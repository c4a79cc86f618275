// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel shared by every row with an id and timestamps
//   - identity.go: users, user_roles, student_profiles
//   - finance.go: payment_concepts, the concept target/exception tables, payments
//
// Target and exception sets are stored as one row per member so the
// audience can be resolved with set queries.
package models
