package app

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"dealership/internal/domain"
)

/********** mapping errors **********/

// mapError describes one record that broke the backend contract.
// It unwraps to domain.ErrBadResponse.
type mapError struct {
	Key    string
	Reason string
}

func (e *mapError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", domain.ErrBadResponse, e.Reason)
	}
	return fmt.Sprintf("%s: key %q: %s", domain.ErrBadResponse, e.Key, e.Reason)
}

func (e *mapError) Unwrap() error { return domain.ErrBadResponse }

/********** field reader **********/

// fields reads typed values out of a decoded JSON object and keeps the first
// failure, so a mapper can read every field and check err once.
type fields struct {
	m   map[string]any
	err error
}

func (f *fields) fail(key, reason string) {
	if f.err == nil {
		f.err = &mapError{Key: key, Reason: reason}
	}
}

// lookup reports whether key is present with a non-null value.
func (f *fields) lookup(key string) (any, bool) {
	v, ok := f.m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (f *fields) required(key string) any {
	v, ok := f.lookup(key)
	if !ok {
		f.fail(key, "missing")
	}
	return v
}

func (f *fields) str(key string) string {
	v := f.required(key)
	if v == nil {
		return ""
	}
	s, ok := asString(v)
	if !ok {
		f.fail(key, fmt.Sprintf("want string, got %T", v))
	}
	return s
}

func (f *fields) optStr(key string) *string {
	v, ok := f.lookup(key)
	if !ok {
		return nil
	}
	s, ok := asString(v)
	if !ok {
		f.fail(key, fmt.Sprintf("want string, got %T", v))
		return nil
	}
	return &s
}

func (f *fields) int64(key string) int64 {
	v := f.required(key)
	if v == nil {
		return 0
	}
	n, ok := asInt64(v)
	if !ok {
		f.fail(key, fmt.Sprintf("want integer, got %v", v))
	}
	return n
}

func (f *fields) optInt(key string) *int {
	v, ok := f.lookup(key)
	if !ok {
		return nil
	}
	n, ok := asInt64(v)
	if !ok {
		f.fail(key, fmt.Sprintf("want integer, got %v", v))
		return nil
	}
	x := int(n)
	return &x
}

func (f *fields) float(key string) float64 {
	v := f.required(key)
	if v == nil {
		return 0
	}
	x, ok := asFloat(v)
	if !ok {
		f.fail(key, fmt.Sprintf("want number, got %v", v))
	}
	return x
}

func (f *fields) bool(key string) bool {
	v := f.required(key)
	if v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
	}
	f.fail(key, fmt.Sprintf("want boolean, got %v", v))
	return false
}

/********** coercion helpers **********/

// asString accepts strings and numbers; zip codes arrive as either.
func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}

// asInt64 accepts integral numbers and numeric strings inside the int64 range.
func asInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	case float64:
		return floatToInt64(t)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	}
	return 0, false
}

// floatToInt64 rejects fractions and anything outside [-2^63, 2^63).
func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < -(1<<63) || f >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}

// asFloat accepts numbers and numeric strings (decimal comma tolerated).
func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// errNoRecord marks a backend row that was not an object or lacked its doc
// wrapper; the client logs which one at the row index.
var errNoRecord = &mapError{Reason: "no record object: row was not an object or lacked its doc wrapper"}

/********** dealer mapper **********/

func mapDealer(m map[string]any) (domain.CarDealer, error) {
	if m == nil {
		return domain.CarDealer{}, errNoRecord
	}
	f := &fields{m: m}
	d := domain.CarDealer{
		ID:        f.int64("id"),
		Address:   f.str("address"),
		City:      f.str("city"),
		FullName:  f.str("full_name"),
		Lat:       f.float("lat"),
		Long:      f.float("long"),
		ShortName: f.str("short_name"),
		St:        f.str("st"),
		State:     f.optStr("state"),
		Zip:       f.str("zip"),
	}
	if f.err != nil {
		return domain.CarDealer{}, f.err
	}
	return d, nil
}

/********** review mapper **********/

// mapReview copies the required fields and only those optional fields the
// backend actually sent; absent ones stay nil. Sentiment is never read from
// the backend.
func mapReview(m map[string]any) (domain.DealerReview, error) {
	if m == nil {
		return domain.DealerReview{}, errNoRecord
	}
	f := &fields{m: m}
	rv := domain.DealerReview{
		Dealership:   f.int64("dealership"),
		ID:           f.int64("id"),
		Name:         f.str("name"),
		Purchase:     f.bool("purchase"),
		Review:       f.str("review"),
		PurchaseDate: f.optStr("purchase_date"),
		CarMake:      f.optStr("car_make"),
		CarModel:     f.optStr("car_model"),
		CarYear:      f.optInt("car_year"),
	}
	if f.err != nil {
		return domain.DealerReview{}, f.err
	}
	return rv, nil
}
