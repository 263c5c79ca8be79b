package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/chatter-pad/internal/model"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    EventType
		wantErr bool
	}{
		{name: "move", raw: `{"from":"a@x.io","type":"move","payload":{"x":1,"y":2}}`, want: EventMove},
		{name: "no payload", raw: `{"type":"buyDrink"}`, want: EventBuyDrink},
		{name: "server only type still decodes", raw: `{"type":"goldUpdate","payload":5}`, want: EventGoldUpdate},
		{name: "unknown type", raw: `{"type":"weather"}`, wantErr: true},
		{name: "missing type", raw: `{"payload":{}}`, wantErr: true},
		{name: "truncated", raw: `{"type":"move"`, wantErr: true},
		{name: "array", raw: `[1,2]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedEvent)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev.Type)
		})
	}
}

func TestEvent_EncodeRoundTrip(t *testing.T) {
	ev, err := NewEvent("a@x.io", EventMove, model.Position{X: 3.5, Y: 4})
	require.NoError(t, err)
	raw, err := ev.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"a@x.io","type":"move","payload":{"x":3.5,"y":4}}`, string(raw))

	back, err := DecodeEvent(raw)
	require.NoError(t, err)
	var pos model.Position
	require.NoError(t, back.decodePayload(&pos))
	assert.Equal(t, model.Position{X: 3.5, Y: 4}, pos)
}

func TestEvent_DecodePayloadRequiresBody(t *testing.T) {
	ev := Event{Type: EventChat}
	var p ChatPayload
	assert.ErrorIs(t, ev.decodePayload(&p), ErrMalformedEvent)
}
