package students

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Family is the cache tag shared by every cached student list.
const Family = "students"

// Student is a registered student.
type Student struct {
	bun.BaseModel `bun:"table:students,alias:s" json:"-" msgpack:"-"`

	ID    uuid.UUID `bun:"id,pk,type:uuid" json:"id" msgpack:"id"`
	RA    string    `bun:"ra,notnull" json:"ra" msgpack:"ra"`
	Name  string    `bun:"name,notnull" json:"name" msgpack:"name"`
	Email string    `bun:"email,notnull" json:"email" msgpack:"email"`
	CPF   string    `bun:"cpf,notnull" json:"cpf" msgpack:"cpf"`
}
