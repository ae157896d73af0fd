package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuery_Validate(t *testing.T) {
	since := time.Unix(0, 0).UTC()
	tests := []struct {
		name    string
		q       Query
		wantErr bool
	}{
		{"empty", Query{}, false},
		{"poll query", Query{Filter: &Filter{FieldUpdatedAt, OpGreaterThanEqual, since}, Sort: SortUpdatedAtDesc, Limit: 10}, false},
		{"unknown field", Query{Filter: &Filter{Field: "content", Operator: OpGreaterThan}}, true},
		{"unknown operator", Query{Filter: &Filter{Field: FieldCreatedAt, Operator: "equals"}}, true},
		{"unknown sort", Query{Sort: "-content"}, true},
		{"negative limit", Query{Limit: -1}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.q.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
