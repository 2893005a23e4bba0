package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"fastpayment/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentOTP struct {
	email, name, code string
}

type fakeMailer struct {
	otps      []sentOTP
	confirmed []int64
	err       error
}

func (f *fakeMailer) SendOTP(_ context.Context, email, name, code string, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.otps = append(f.otps, sentOTP{email, name, code})
	return nil
}

func (f *fakeMailer) SendRegistrationConfirmed(_ context.Context, _ string, registrationID, _, _ int64) error {
	if f.err != nil {
		return f.err
	}
	f.confirmed = append(f.confirmed, registrationID)
	return nil
}

type fakeIndexer struct {
	ids []int64
	err error
}

func (f *fakeIndexer) IndexHistory(_ context.Context, entry *models.HistoryLog) error {
	if f.err != nil {
		return f.err
	}
	f.ids = append(f.ids, entry.ID)
	return nil
}

func payload(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestProcessOTPIssued(t *testing.T) {
	m := &fakeMailer{}
	h := NewHandlers(m, nil)

	err := h.processOTPIssued(context.Background(), payload(t, models.OTPIssuedEvent{
		Email:     "ana@example.com",
		Name:      "Ana",
		Code:      "123456",
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}))
	require.NoError(t, err)
	require.Len(t, m.otps, 1)
	assert.Equal(t, "123456", m.otps[0].code)
}

func TestProcessOTPIssued_SkipsExpiredCode(t *testing.T) {
	m := &fakeMailer{}
	h := NewHandlers(m, nil)

	err := h.processOTPIssued(context.Background(), payload(t, models.OTPIssuedEvent{
		Email:     "ana@example.com",
		Code:      "123456",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))
	require.NoError(t, err)
	assert.Empty(t, m.otps)
}

func TestProcessOTPIssued_MailerErrorKeepsMessageUnacked(t *testing.T) {
	h := NewHandlers(&fakeMailer{err: errors.New("smtp down")}, nil)

	err := h.processOTPIssued(context.Background(), payload(t, models.OTPIssuedEvent{
		Email:     "ana@example.com",
		Code:      "123456",
		ExpiresAt: time.Now().Add(time.Minute),
	}))
	assert.Error(t, err)
}

func TestProcess_DropsMalformedPayload(t *testing.T) {
	m := &fakeMailer{}
	h := NewHandlers(m, &fakeIndexer{})

	assert.NoError(t, h.processOTPIssued(context.Background(), []byte("{")))
	assert.NoError(t, h.processRegistrationConfirmed(context.Background(), []byte("nope")))
	assert.NoError(t, h.processHistoryAppended(context.Background(), []byte("[")))
	assert.Empty(t, m.otps)
}

func TestProcessRegistrationConfirmed(t *testing.T) {
	m := &fakeMailer{}
	h := NewHandlers(m, nil)

	err := h.processRegistrationConfirmed(context.Background(), payload(t, models.RegistrationConfirmedEvent{
		RegistrationID: 31,
		ScheduleID:     3,
		Email:          "ana@example.com",
		AmountCents:    4590,
	}))
	require.NoError(t, err)
	assert.Equal(t, []int64{31}, m.confirmed)

	err = h.processRegistrationConfirmed(context.Background(), payload(t, models.RegistrationConfirmedEvent{RegistrationID: 32}))
	require.NoError(t, err)
	assert.Equal(t, []int64{31}, m.confirmed)
}

func TestProcessHistoryAppended(t *testing.T) {
	idx := &fakeIndexer{}
	h := NewHandlers(&fakeMailer{}, idx)

	err := h.processHistoryAppended(context.Background(), payload(t, models.HistoryAppendedEvent{
		Log: models.HistoryLog{ID: 42, Action: models.ActionPaymentApproved},
	}))
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, idx.ids)

	idx.err = errors.New("cluster red")
	err = h.processHistoryAppended(context.Background(), payload(t, models.HistoryAppendedEvent{Log: models.HistoryLog{ID: 43}}))
	assert.Error(t, err)
}

func TestProcessHistoryAppended_WithoutIndexer(t *testing.T) {
	h := NewHandlers(&fakeMailer{}, nil)
	assert.NoError(t, h.processHistoryAppended(context.Background(), []byte(`{"log":{"id":1}}`)))
}

func TestProcessNoVacancy(t *testing.T) {
	h := NewHandlers(&fakeMailer{}, nil)
	assert.NoError(t, h.processNoVacancy(context.Background(), payload(t, models.RegistrationNoVacancyEvent{PaymentID: "555"})))
}
