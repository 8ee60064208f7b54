package domain

// The view types below are the only JSON shapes the HTTP layer emits. Each
// endpoint picks the view that drops the relationship field it must not
// render, so producer and cheese never embed each other recursively.

// ProducerSummary is a producer without its cheeses.
type ProducerSummary struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	FoundingYear  int           `json:"founding_year"`
	Region        *string       `json:"region"`
	OperationSize OperationSize `json:"operation_size"`
	Image         *string       `json:"image"`
}

// CheeseSummary is a cheese without an embedded producer.
type CheeseSummary struct {
	ID             int64   `json:"id"`
	ProducerID     int64   `json:"producer_id"`
	Kind           string  `json:"kind"`
	IsRawMilk      bool    `json:"is_raw_milk"`
	ProductionDate string  `json:"production_date"`
	Image          *string `json:"image"`
	Price          float64 `json:"price"`
}

// ProducerDetail is a producer with its cheeses, each without a producer.
type ProducerDetail struct {
	ProducerSummary
	Cheeses []CheeseSummary `json:"cheeses"`
}

// CheeseDetail is a cheese with its producer, the producer without cheeses.
type CheeseDetail struct {
	CheeseSummary
	Producer ProducerSummary `json:"producer"`
}

// Summary renders the producer without relationships.
func (p Producer) Summary() ProducerSummary {
	return ProducerSummary{
		ID:            p.ID,
		Name:          p.Name,
		FoundingYear:  p.FoundingYear,
		Region:        cloneString(p.Region),
		OperationSize: p.OperationSize,
		Image:         cloneString(p.Image),
	}
}

// Detail renders the producer with the supplied cheeses.
func (p Producer) Detail(cheeses []Cheese) ProducerDetail {
	out := ProducerDetail{ProducerSummary: p.Summary(), Cheeses: make([]CheeseSummary, 0, len(cheeses))}
	for _, c := range cheeses {
		out.Cheeses = append(out.Cheeses, c.Summary())
	}
	return out
}

// Summary renders the cheese without relationships.
func (c Cheese) Summary() CheeseSummary {
	return CheeseSummary{
		ID:             c.ID,
		ProducerID:     c.ProducerID,
		Kind:           c.Kind,
		IsRawMilk:      c.IsRawMilk,
		ProductionDate: c.ProductionDate.UTC().Format(DateLayout),
		Image:          cloneString(c.Image),
		Price:          c.Price,
	}
}

// Detail renders the cheese with its producer.
func (c Cheese) Detail(producer Producer) CheeseDetail {
	return CheeseDetail{CheeseSummary: c.Summary(), Producer: producer.Summary()}
}
