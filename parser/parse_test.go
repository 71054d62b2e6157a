package parser_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	customerrors "staffing-risk/errors"
	"staffing-risk/models"
	"staffing-risk/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShifts(t *testing.T) {
	eastern, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	tests := map[string]struct {
		input         string
		expectedData  []models.Shift
		expectedError error
	}{
		"ValidInput_RFC3339": {
			input: `
2024-06-03T10:00:00Z, 2024-06-03T14:00:00Z, 2, kitchen
`,
			expectedData: []models.Shift{
				{
					Start:      time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC),
					End:        time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC),
					StaffCount: 2,
					Role:       models.RoleKitchen,
				},
			},
		},
		"ValidInput_WithComments": {
			input: `
# Weekly kitchen plan
# Start, End, StaffCount, Role
2024-06-03 17:00, 2024-06-03 22:00, 3, Kitchen
2024-06-03 17:00, 2024-06-03 21:00, 1, FRONT
`,
			expectedData: []models.Shift{
				{
					Start:      time.Date(2024, 6, 3, 17, 0, 0, 0, time.UTC),
					End:        time.Date(2024, 6, 3, 22, 0, 0, 0, time.UTC),
					StaffCount: 3,
					Role:       models.RoleKitchen,
				},
				{
					Start:      time.Date(2024, 6, 3, 17, 0, 0, 0, time.UTC),
					End:        time.Date(2024, 6, 3, 21, 0, 0, 0, time.UTC),
					StaffCount: 1,
					Role:       models.RoleFront,
				},
			},
		},
		"ValidInput_MultipleTimezones": {
			input: `
# StartET, End, StaffCount, Role
2024-06-03 09:00, 2024-06-03 17:00, 4, delivery
# StartAsia/Tokyo, End, StaffCount, Role
2024-06-03T09:00, 2024-06-03T17:00, 2, front
`,
			expectedData: []models.Shift{
				{
					Start:      time.Date(2024, 6, 3, 9, 0, 0, 0, eastern),
					End:        time.Date(2024, 6, 3, 17, 0, 0, 0, eastern),
					StaffCount: 4,
					Role:       models.RoleDelivery,
				},
				{
					Start:      time.Date(2024, 6, 3, 9, 0, 0, 0, tokyo),
					End:        time.Date(2024, 6, 3, 17, 0, 0, 0, tokyo),
					StaffCount: 2,
					Role:       models.RoleFront,
				},
			},
		},
		"Error_InvalidFieldCount": {
			input: `
2024-06-03T10:00:00Z, 2024-06-03T14:00:00Z, 2
`,
			expectedError: customerrors.ErrInvalidFieldCount,
		},
		"Error_InvalidStart": {
			input: `
yesterday, 2024-06-03T14:00:00Z, 2, kitchen
`,
			expectedError: customerrors.ErrInvalidTimestamp,
		},
		"Error_InvalidEnd": {
			input: `
2024-06-03T10:00:00Z, 2024-06-03T25:00:00Z, 2, kitchen
`,
			expectedError: customerrors.ErrInvalidTimestamp,
		},
		"Error_InvalidStaffCount": {
			input: `
2024-06-03T10:00:00Z, 2024-06-03T14:00:00Z, two, kitchen
`,
			expectedError: customerrors.ErrInvalidCount,
		},
		"Error_NegativeStaffCount": {
			input: `
2024-06-03T10:00:00Z, 2024-06-03T14:00:00Z, -1, kitchen
`,
			expectedError: customerrors.ErrInvalidCount,
		},
		"Error_UnknownRole": {
			input: `
2024-06-03T10:00:00Z, 2024-06-03T14:00:00Z, 1, bartender
`,
			expectedError: customerrors.ErrUnknownRole,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := parser.ParseShifts(strings.NewReader(strings.TrimSpace(tt.input)))

			if tt.expectedError != nil {
				assert.True(t, errors.Is(err, tt.expectedError), "ParseShifts() error = %v, expectedError %v", err, tt.expectedError)
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			require.Len(t, got, len(tt.expectedData))
			for i := range got {
				assert.True(t, tt.expectedData[i].Start.Equal(got[i].Start), "start %d: %v", i, got[i].Start)
				assert.True(t, tt.expectedData[i].End.Equal(got[i].End), "end %d: %v", i, got[i].End)
				assert.Equal(t, tt.expectedData[i].StaffCount, got[i].StaffCount)
				assert.Equal(t, tt.expectedData[i].Role, got[i].Role)
			}
		})
	}
}

func TestParseErrorLocation(t *testing.T) {
	input := "# Start, End, StaffCount, Role\n2024-06-03T10:00:00Z, 2024-06-03T14:00:00Z, 2, kitchen\n2024-06-03T10:00:00Z, 2024-06-03T14:00:00Z, x, kitchen\n"
	_, err := parser.ParseShifts(strings.NewReader(input))

	var perr *customerrors.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 3, perr.Line)
	assert.Equal(t, "x", perr.Record[2])
}

func TestParseBuckets(t *testing.T) {
	tests := map[string]struct {
		input         string
		expectedData  []models.Bucket
		expectedError error
	}{
		"ValidInput": {
			input: `
# Timestamp, Orders
2024-06-03T12:00:00Z, 6
2024-06-03T12:15:00Z, 7.5
2024-06-03T12:30:00Z, 0
`,
			expectedData: []models.Bucket{
				{Start: time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC), Orders: 6},
				{Start: time.Date(2024, 6, 3, 12, 15, 0, 0, time.UTC), Orders: 7.5},
				{Start: time.Date(2024, 6, 3, 12, 30, 0, 0, time.UTC), Orders: 0},
			},
		},
		"Error_NegativeOrders": {
			input:         "2024-06-03T12:00:00Z, -3",
			expectedError: customerrors.ErrInvalidCount,
		},
		"Error_NaNOrders": {
			input:         "2024-06-03T12:00:00Z, NaN",
			expectedError: customerrors.ErrInvalidCount,
		},
		"Error_MissingColumn": {
			input:         "2024-06-03T12:00:00Z",
			expectedError: customerrors.ErrInvalidFieldCount,
		},
		"Error_EmptyRecord": {
			input:         "2024-06-03T12:00:00Z, 1\n ,\n",
			expectedError: customerrors.ErrEmptyRecord,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := parser.ParseBuckets(strings.NewReader(strings.TrimSpace(tt.input)))
			if tt.expectedError != nil {
				assert.True(t, errors.Is(err, tt.expectedError), "ParseBuckets() error = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedData, got)
		})
	}
}

func TestParseOrders(t *testing.T) {
	input := `
# TimestampUTC, OrderID
2024-06-03 12:02, A-1
2024-06-03 12:14:30, A-2
2024-06-03T12:47:00+02:00
`
	got, err := parser.ParseOrders(strings.NewReader(strings.TrimSpace(input)))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, time.Date(2024, 6, 3, 12, 2, 0, 0, time.UTC), got[0])
	assert.Equal(t, time.Date(2024, 6, 3, 12, 14, 30, 0, time.UTC), got[1])
	assert.True(t, time.Date(2024, 6, 3, 10, 47, 0, 0, time.UTC).Equal(got[2]))

	_, err = parser.ParseOrders(strings.NewReader("soon"))
	assert.True(t, errors.Is(err, customerrors.ErrInvalidTimestamp))

	got, err = parser.ParseOrders(strings.NewReader("# nothing yet\n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}
