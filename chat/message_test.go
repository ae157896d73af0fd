package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Ref
		wantErr bool
	}{
		{"string", `"user-1"`, "user-1", false},
		{"number", `1`, "1", false},
		{"null", `null`, "", false},
		{"object", `{}`, "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var r Ref
			err := json.Unmarshal([]byte(tc.input), &r)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, r)
		})
	}
}

func TestNewMessage_DecodesNumericRefs(t *testing.T) {
	var in NewMessage
	require.NoError(t, json.Unmarshal([]byte(`{"content":"hi","sender":1,"receiver":2}`), &in))

	assert.Equal(t, Ref("1"), in.Sender)
	assert.Equal(t, Ref("2"), in.Receiver)

	out, err := json.Marshal(Message{ID: "a", Sender: in.Sender})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"sender":"1"`)
}

func TestNewest(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, ok := Newest(nil)
	assert.False(t, ok)

	m, ok := Newest([]Message{
		{ID: "a", UpdatedAt: base},
		{ID: "b", UpdatedAt: base.Add(2 * time.Second)},
		{ID: "c", UpdatedAt: base.Add(time.Second)},
	})
	require.True(t, ok)
	assert.Equal(t, "b", m.ID)
}
