// Package parser reads shifts, historical demand buckets and raw order
// timestamps from CSV.
//
// Lines starting with '#' are headers or comments. A header whose first
// column is StartXX or TimestampXX sets the timezone for timestamps without
// an explicit offset in all following rows, e.g. "# StartET, End, Staff,
// Role" or "# TimestampEurope/London, Orders". US codes (PT, ET, CT, MT,
// UTC) and IANA names are accepted. Rows default to UTC.
package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	customerrors "staffing-risk/errors"
	"staffing-risk/metrics"
	"staffing-risk/models"
)

// layouts accepted for timestamps without an offset.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseShifts reads rows of start, end, staff_count, role.
func ParseShifts(r io.Reader) ([]models.Shift, error) {
	var shifts []models.Shift
	err := read(r, "shifts", 4, func(line int, record []string, loc *time.Location) error {
		start, err := parseTimestamp(record[0], loc)
		if err != nil {
			return fail(line, record, customerrors.ErrInvalidTimestamp, err)
		}
		end, err := parseTimestamp(record[1], loc)
		if err != nil {
			return fail(line, record, customerrors.ErrInvalidTimestamp, err)
		}
		staff, err := strconv.Atoi(strings.TrimSpace(record[2]))
		if err != nil {
			return fail(line, record, customerrors.ErrInvalidCount, err)
		}
		if staff < 0 {
			return fail(line, record, customerrors.ErrInvalidCount, fmt.Errorf("staff count %d is negative", staff))
		}
		role := models.Role(strings.ToLower(strings.TrimSpace(record[3])))
		if !role.Valid() {
			return fail(line, record, customerrors.ErrUnknownRole, fmt.Errorf("%q", record[3]))
		}
		shifts = append(shifts, models.Shift{Start: start, End: end, StaffCount: staff, Role: role})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shifts, nil
}

// ParseBuckets reads rows of timestamp, orders.
func ParseBuckets(r io.Reader) ([]models.Bucket, error) {
	var buckets []models.Bucket
	err := read(r, "buckets", 2, func(line int, record []string, loc *time.Location) error {
		start, err := parseTimestamp(record[0], loc)
		if err != nil {
			return fail(line, record, customerrors.ErrInvalidTimestamp, err)
		}
		orders, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return fail(line, record, customerrors.ErrInvalidCount, err)
		}
		if orders < 0 || math.IsNaN(orders) || math.IsInf(orders, 0) {
			return fail(line, record, customerrors.ErrInvalidCount, fmt.Errorf("order count %v", orders))
		}
		buckets = append(buckets, models.Bucket{Start: start, Orders: orders})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buckets, nil
}

// ParseOrders reads one order timestamp per row. Extra columns, such as an
// order id, are ignored.
func ParseOrders(r io.Reader) ([]time.Time, error) {
	var orders []time.Time
	err := read(r, "orders", -1, func(line int, record []string, loc *time.Location) error {
		ts, err := parseTimestamp(record[0], loc)
		if err != nil {
			return fail(line, record, customerrors.ErrInvalidTimestamp, err)
		}
		orders = append(orders, ts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// read drives the CSV loop shared by every input kind. fields is the exact
// column count, or -1 for any non-empty row.
func read(r io.Reader, input string, fields int, row func(line int, record []string, loc *time.Location) error) error {
	started := time.Now()
	defer func() {
		metrics.ParserDurationSeconds.Observe(time.Since(started).Seconds())
	}()

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	loc := time.UTC
	lineNum := 0
	for {
		record, err := reader.Read()
		lineNum++
		if err == io.EOF {
			return nil
		}
		if err != nil {
			metrics.ParserErrorsTotal.WithLabelValues("csv").Inc()
			return fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}

		if len(record) > 0 && strings.HasPrefix(strings.TrimSpace(record[0]), "#") {
			if newLoc, ok := headerLocation(record[0]); ok {
				loc = newLoc
			}
			continue
		}

		if isEmpty(record) {
			err = fail(lineNum, record, customerrors.ErrEmptyRecord, nil)
		} else if fields > 0 && len(record) != fields {
			err = fail(lineNum, record, customerrors.ErrInvalidFieldCount, fmt.Errorf("got %d, want %d", len(record), fields))
		} else {
			err = row(lineNum, record, loc)
		}
		if err != nil {
			metrics.ParserErrorsTotal.WithLabelValues(errorType(err)).Inc()
			return err
		}
		metrics.ParserRecordsTotal.WithLabelValues(input).Inc()
	}
}

func isEmpty(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func fail(line int, record []string, kind, cause error) error {
	err := kind
	if cause != nil {
		err = fmt.Errorf("%w: %v", kind, cause)
	}
	return &customerrors.ParseError{Line: line, Record: record, Err: err}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, customerrors.ErrInvalidTimestamp):
		return "timestamp"
	case errors.Is(err, customerrors.ErrInvalidCount):
		return "count"
	case errors.Is(err, customerrors.ErrUnknownRole):
		return "role"
	case errors.Is(err, customerrors.ErrInvalidFieldCount):
		return "field_count"
	case errors.Is(err, customerrors.ErrEmptyRecord):
		return "empty"
	}
	return "other"
}

func parseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	var lastErr error
	for _, layout := range localLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// headerLocation extracts the timezone from a "# StartXX" or
// "# TimestampXX" header column.
func headerLocation(column string) (*time.Location, bool) {
	name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(column), "#"))
	for _, prefix := range []string{"Start", "Timestamp"} {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		code := strings.TrimPrefix(name, prefix)
		if code == "" {
			return nil, false
		}
		loc, err := getTimezoneLocation(code)
		if err != nil {
			return nil, false
		}
		return loc, true
	}
	return nil, false
}

func getTimezoneLocation(code string) (*time.Location, error) {
	switch strings.TrimSpace(code) {
	case "PT":
		return time.LoadLocation("America/Los_Angeles")
	case "ET":
		return time.LoadLocation("America/New_York")
	case "CT":
		return time.LoadLocation("America/Chicago")
	case "MT":
		return time.LoadLocation("America/Denver")
	case "UTC":
		return time.UTC, nil
	default:
		return time.LoadLocation(strings.TrimSpace(code))
	}
}
