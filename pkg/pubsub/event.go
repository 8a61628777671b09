package pubsub

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// DomainEvent is the minimal schema for an outbound domain event: a name
// identifying the event type and a structured detail body.
type DomainEvent struct {
	Name   string                 `json:"eventName" validate:"required"`
	Detail map[string]interface{} `json:"detail" validate:"required"`
}

// Validate checks the event against the schema.
func (e DomainEvent) Validate() error {
	return validate.Struct(e)
}
