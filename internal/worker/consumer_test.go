package worker

import (
	"testing"

	"github.com/fluxolabs/fluxo-backend/internal/worker/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobMessage(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		tag     uint64
		wantErr bool
	}{
		{
			name: "valid message",
			body: `{"job_id":"b2f9c6de-13aa-4be1-9f67-8f1f6f5a0c4e","agent":"onchain"}`,
			tag:  7,
		},
		{
			name:    "malformed json",
			body:    `{"job_id":`,
			wantErr: true,
		},
		{
			name:    "job_id not a uuid",
			body:    `{"job_id":"42","agent":"onchain"}`,
			wantErr: true,
		},
		{
			name:    "missing agent",
			body:    `{"job_id":"b2f9c6de-13aa-4be1-9f67-8f1f6f5a0c4e"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := parseJobMessage(amqp.Delivery{
				Body:        []byte(tt.body),
				DeliveryTag: tt.tag,
			})

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidMessage)
				assert.Nil(t, msg)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "b2f9c6de-13aa-4be1-9f67-8f1f6f5a0c4e", msg.JobID)
				assert.Equal(t, "onchain", msg.Agent)
				assert.Equal(t, tt.tag, msg.DeliveryTag)
			}
		})
	}
}
