// Package domain defines the producer and cheese entities, the validation
// rules that guard their fields, and the persistence contracts used by
// cheeseshop.
package domain

import (
	"errors"
	"time"
)

// EntityType identifies the type of record stored in the catalog.
type EntityType string

// Supported entity type identifiers used in errors and persistence tables.
const (
	// EntityProducer identifies a producer record.
	EntityProducer EntityType = "producer"
	// EntityCheese identifies a cheese record.
	EntityCheese EntityType = "cheese"
)

// OperationSize classifies the scale of a producer's operation.
type OperationSize string

// Accepted operation sizes.
const (
	SizeSmall     OperationSize = "small"
	SizeMedium    OperationSize = "medium"
	SizeLarge     OperationSize = "large"
	SizeFamily    OperationSize = "family"
	SizeCorporate OperationSize = "corporate"
)

// OperationSizes lists every accepted operation size in display order.
func OperationSizes() []OperationSize {
	return []OperationSize{SizeSmall, SizeMedium, SizeLarge, SizeFamily, SizeCorporate}
}

// Valid reports whether the size is one of the accepted values.
func (s OperationSize) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge, SizeFamily, SizeCorporate:
		return true
	default:
		return false
	}
}

// Producer is a cheese-making operation. It exclusively owns its cheeses.
type Producer struct {
	ID            int64
	Name          string
	FoundingYear  int
	Region        *string
	OperationSize OperationSize
	Image         *string
}

// Cheese is a product made by exactly one producer.
type Cheese struct {
	ID             int64
	ProducerID     int64
	Kind           string
	IsRawMilk      bool
	ProductionDate time.Time
	Image          *string
	Price          float64
}

// ProducerInput carries the caller supplied fields for a new producer.
type ProducerInput struct {
	Name          string
	FoundingYear  int
	Region        *string
	OperationSize string
	Image         *string
}

// NewProducer validates the input and returns an unsaved producer. Every
// failing field is reported; the returned error joins them.
func NewProducer(in ProducerInput) (Producer, error) {
	errs := []error{
		ValidateName("name", in.Name),
		ValidateFoundingYear(in.FoundingYear),
		ValidateOperationSize(in.OperationSize),
	}
	if err := errors.Join(errs...); err != nil {
		return Producer{}, err
	}
	return Producer{
		Name:          in.Name,
		FoundingYear:  in.FoundingYear,
		Region:        cloneString(in.Region),
		OperationSize: OperationSize(in.OperationSize),
		Image:         cloneString(in.Image),
	}, nil
}

// CheeseInput carries the caller supplied fields for a new cheese.
type CheeseInput struct {
	ProducerID     int64
	Kind           string
	IsRawMilk      bool
	ProductionDate string
	Image          *string
	Price          float64
}

// NewCheese validates the input against now and returns an unsaved cheese.
// The producer reference is not resolved here; stores reject dangling ids.
func NewCheese(in CheeseInput, now time.Time) (Cheese, error) {
	date, dateErr := ParseProductionDate(in.ProductionDate, now)
	var refErr error
	if in.ProducerID <= 0 {
		refErr = &ValidationError{Field: "producer_id", Message: "producer_id is required"}
	}
	if err := errors.Join(
		refErr,
		ValidateName("kind", in.Kind),
		dateErr,
		ValidatePrice(in.Price),
	); err != nil {
		return Cheese{}, err
	}
	return Cheese{
		ProducerID:     in.ProducerID,
		Kind:           in.Kind,
		IsRawMilk:      in.IsRawMilk,
		ProductionDate: date,
		Image:          cloneString(in.Image),
		Price:          in.Price,
	}, nil
}

// Clone returns a deep copy of the producer.
func (p Producer) Clone() Producer {
	p.Region = cloneString(p.Region)
	p.Image = cloneString(p.Image)
	return p
}

// Clone returns a deep copy of the cheese.
func (c Cheese) Clone() Cheese {
	c.Image = cloneString(c.Image)
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
