package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"cheeseshop/pkg/domain"
)

const maxBodyBytes = 1 << 20

var jsonNull = []byte("null")

// fields holds a decoded request object keyed by member name so absent,
// null and mistyped members can be told apart.
type fields map[string]json.RawMessage

func fieldError(name, message string) error {
	return &domain.ValidationError{Field: name, Message: message}
}

// decodeFields reads a single JSON object and rejects members outside allowed.
func decodeFields(r *http.Request, allowed ...string) (fields, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fieldError("body", "unreadable body")
	}
	if len(body) > maxBodyBytes {
		return nil, fieldError("body", "body too large")
	}
	var out fields
	if err := json.Unmarshal(body, &out); err != nil || out == nil {
		return nil, fieldError("body", "body must be a JSON object")
	}
	known := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		known[name] = struct{}{}
	}
	var errs []error
	for name := range out {
		if _, ok := known[name]; !ok {
			errs = append(errs, fieldError(name, "unknown field"))
		}
	}
	return out, errors.Join(errs...)
}

func (f fields) raw(name string) (json.RawMessage, bool, bool) {
	raw, ok := f[name]
	if !ok {
		return nil, false, false
	}
	return raw, true, bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}

func (f fields) str(name string) (*string, error) {
	raw, present, null := f.raw(name)
	if !present {
		return nil, nil
	}
	if null {
		return nil, fieldError(name, "must not be null")
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fieldError(name, "must be a string")
	}
	return &v, nil
}

// nullableStr reports a present null through cleared.
func (f fields) nullableStr(name string) (v *string, cleared bool, err error) {
	if _, present, null := f.raw(name); present && null {
		return nil, true, nil
	}
	v, err = f.str(name)
	return v, false, err
}

func (f fields) integer(name string) (*int64, error) {
	raw, present, null := f.raw(name)
	if !present {
		return nil, nil
	}
	if null {
		return nil, fieldError(name, "must not be null")
	}
	var v int64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fieldError(name, "must be an integer")
	}
	return &v, nil
}

func (f fields) number(name string) (*float64, error) {
	raw, present, null := f.raw(name)
	if !present {
		return nil, nil
	}
	if null {
		return nil, fieldError(name, "must not be null")
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fieldError(name, "must be a number")
	}
	return &v, nil
}

func (f fields) boolean(name string) (*bool, error) {
	raw, present, null := f.raw(name)
	if !present {
		return nil, nil
	}
	if null {
		return nil, fieldError(name, "must not be null")
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fieldError(name, "must be a boolean")
	}
	return &v, nil
}

func decodeProducerInput(r *http.Request) (domain.ProducerInput, error) {
	f, err := decodeFields(r, "name", "founding_year", "region", "operation_size", "image")
	if err != nil {
		return domain.ProducerInput{}, err
	}
	name, nameErr := f.str("name")
	year, yearErr := f.integer("founding_year")
	region, _, regionErr := f.nullableStr("region")
	size, sizeErr := f.str("operation_size")
	image, _, imageErr := f.nullableStr("image")
	if err := errors.Join(nameErr, yearErr, regionErr, sizeErr, imageErr); err != nil {
		return domain.ProducerInput{}, err
	}
	in := domain.ProducerInput{Region: region, Image: image}
	if name != nil {
		in.Name = *name
	}
	if year != nil {
		if *year != int64(int(*year)) {
			return domain.ProducerInput{}, fieldError("founding_year", "out of range")
		}
		in.FoundingYear = int(*year)
	}
	if size != nil {
		in.OperationSize = *size
	}
	return in, nil
}

var cheeseFields = []string{"producer_id", "kind", "is_raw_milk", "production_date", "image", "price"}

func decodeCheeseInput(r *http.Request) (domain.CheeseInput, error) {
	f, err := decodeFields(r, cheeseFields...)
	if err != nil {
		return domain.CheeseInput{}, err
	}
	producer, producerErr := f.integer("producer_id")
	kind, kindErr := f.str("kind")
	raw, rawErr := f.boolean("is_raw_milk")
	date, dateErr := f.str("production_date")
	image, _, imageErr := f.nullableStr("image")
	price, priceErr := f.number("price")
	if raw == nil && rawErr == nil {
		rawErr = fieldError("is_raw_milk", "is required")
	}
	if err := errors.Join(producerErr, kindErr, rawErr, dateErr, imageErr, priceErr); err != nil {
		return domain.CheeseInput{}, err
	}
	in := domain.CheeseInput{Image: image, IsRawMilk: *raw}
	if producer != nil {
		in.ProducerID = *producer
	}
	if kind != nil {
		in.Kind = *kind
	}
	if date != nil {
		in.ProductionDate = *date
	}
	if price != nil {
		in.Price = *price
	}
	return in, nil
}

func decodeCheesePatch(r *http.Request) (domain.CheesePatch, error) {
	f, err := decodeFields(r, cheeseFields...)
	if err != nil {
		return domain.CheesePatch{}, err
	}
	var patch domain.CheesePatch
	var producerErr, kindErr, rawErr, dateErr, imageErr, priceErr error
	patch.ProducerID, producerErr = f.integer("producer_id")
	patch.Kind, kindErr = f.str("kind")
	patch.IsRawMilk, rawErr = f.boolean("is_raw_milk")
	patch.ProductionDate, dateErr = f.str("production_date")
	patch.Image, patch.ClearImage, imageErr = f.nullableStr("image")
	patch.Price, priceErr = f.number("price")
	if err := errors.Join(producerErr, kindErr, rawErr, dateErr, imageErr, priceErr); err != nil {
		return domain.CheesePatch{}, err
	}
	return patch, nil
}

type exportRequest struct {
	Formats     []string `json:"formats"`
	RequestedBy string   `json:"requested_by"`
}

func decodeExportInput(r *http.Request) (ExportInput, error) {
	var req exportRequest
	if r.ContentLength != 0 {
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return ExportInput{}, fmt.Errorf("invalid export request: %w", err)
		}
	}
	input := ExportInput{RequestedBy: req.RequestedBy}
	for _, raw := range req.Formats {
		format, err := ParseExportFormat(raw)
		if err != nil {
			return ExportInput{}, err
		}
		input.Formats = append(input.Formats, format)
	}
	return input, nil
}

// parseID returns false for anything that is not a positive integer.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
