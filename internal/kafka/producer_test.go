package kafka

import (
	"encoding/json"
	"errors"
	"testing"

	"helmet-safety-go/pkg/models"

	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishIncidents(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var event models.IncidentEvent
		if err := json.Unmarshal(val, &event); err != nil {
			return err
		}
		if event.SessionID != "session-1" || event.Incident.IncidentType != models.IncidentNoHelmet {
			return errors.New("unexpected event")
		}
		return nil
	})

	p := NewProducerWith(mock, "safety-incidents")
	err := p.PublishIncidents("session-1", []models.SafetyIncident{{
		IncidentType: models.IncidentNoHelmet,
		Severity:     models.SeverityMedium,
		Description:  "1 person/people without helmet",
		FrameNumber:  3,
	}})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestPublishIncidents_Nothing(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)

	p := NewProducerWith(mock, "safety-incidents")
	assert.NoError(t, p.PublishIncidents("session-1", nil))
	require.NoError(t, p.Close())
}

func TestPublishIncidents_Failure(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageAndFail(errors.New("broker down"))

	p := NewProducerWith(mock, "safety-incidents")
	err := p.PublishIncidents("session-1", []models.SafetyIncident{{IncidentType: models.IncidentNoHelmet}})
	assert.Error(t, err)
	require.NoError(t, p.Close())
}
