package domain

import (
	"errors"
	"time"
)

// CheesePatch is a partial cheese update. Nil fields are left unchanged.
// ClearImage sets the image to null and wins over Image.
type CheesePatch struct {
	ProducerID     *int64
	Kind           *string
	IsRawMilk      *bool
	ProductionDate *string
	Image          *string
	ClearImage     bool
	Price          *float64
}

// Empty reports whether the patch changes nothing.
func (p CheesePatch) Empty() bool {
	return p.ProducerID == nil && p.Kind == nil && p.IsRawMilk == nil &&
		p.ProductionDate == nil && p.Image == nil && !p.ClearImage && p.Price == nil
}

// Apply validates every provided field against a copy of c and assigns the
// copy back only when all fields pass. Producer existence is checked by the
// caller inside the same transaction.
func (p CheesePatch) Apply(c *Cheese, now time.Time) error {
	next := c.Clone()
	var errs []error
	if p.ProducerID != nil {
		if *p.ProducerID <= 0 {
			errs = append(errs, &ValidationError{Field: "producer_id", Message: "producer_id is required"})
		} else {
			next.ProducerID = *p.ProducerID
		}
	}
	if p.Kind != nil {
		if err := ValidateName("kind", *p.Kind); err != nil {
			errs = append(errs, err)
		} else {
			next.Kind = *p.Kind
		}
	}
	if p.IsRawMilk != nil {
		next.IsRawMilk = *p.IsRawMilk
	}
	if p.ProductionDate != nil {
		date, err := ParseProductionDate(*p.ProductionDate, now)
		if err != nil {
			errs = append(errs, err)
		} else {
			next.ProductionDate = date
		}
	}
	switch {
	case p.ClearImage:
		next.Image = nil
	case p.Image != nil:
		next.Image = cloneString(p.Image)
	}
	if p.Price != nil {
		if err := ValidatePrice(*p.Price); err != nil {
			errs = append(errs, err)
		} else {
			next.Price = *p.Price
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	*c = next
	return nil
}
