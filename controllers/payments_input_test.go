package controllers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindOn(t *testing.T, contentType string, body *bytes.Buffer) (paymentInput, string, error) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodPost, "/payments", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req

	return bindPaymentInput(c)
}

func TestBindPaymentInput(t *testing.T) {
	t.Run("json body", func(t *testing.T) {
		body := bytes.NewBufferString(`{"member_id":"64b8f0f0f0f0f0f0f0f0f0f0","amount":70,"method":"cash","date":"2025-03-10"}`)
		input, receiptURL, err := bindOn(t, "application/json", body)
		require.NoError(t, err)

		assert.Equal(t, "64b8f0f0f0f0f0f0f0f0f0f0", input.MemberID)
		assert.Equal(t, 70.0, input.Amount)
		assert.Nil(t, input.InstallmentNumber)
		assert.Empty(t, receiptURL)
	})

	t.Run("json body without amount rejected", func(t *testing.T) {
		body := bytes.NewBufferString(`{"member_id":"abc","method":"cash","date":"2025-03-10"}`)
		_, _, err := bindOn(t, "application/json", body)
		assert.Error(t, err)
	})

	t.Run("multipart form without receipt", func(t *testing.T) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		require.NoError(t, w.WriteField("member_contribution_id", "64b8f0f0f0f0f0f0f0f0f0f0"))
		require.NoError(t, w.WriteField("installment_number", "2"))
		require.NoError(t, w.WriteField("amount", "30.50"))
		require.NoError(t, w.WriteField("method", "transfer"))
		require.NoError(t, w.WriteField("date", "2025-03-10"))
		require.NoError(t, w.Close())

		input, receiptURL, err := bindOn(t, w.FormDataContentType(), &buf)
		require.NoError(t, err)

		assert.Equal(t, "64b8f0f0f0f0f0f0f0f0f0f0", input.MemberContributionID)
		require.NotNil(t, input.InstallmentNumber)
		assert.Equal(t, 2, *input.InstallmentNumber)
		assert.Equal(t, 30.50, input.Amount)
		assert.Equal(t, "transfer", input.Method)
		assert.Empty(t, receiptURL)
	})

	t.Run("multipart form with a bad amount rejected", func(t *testing.T) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		require.NoError(t, w.WriteField("amount", "not-a-number"))
		require.NoError(t, w.WriteField("method", "cash"))
		require.NoError(t, w.WriteField("date", "2025-03-10"))
		require.NoError(t, w.Close())

		_, _, err := bindOn(t, w.FormDataContentType(), &buf)
		assert.Error(t, err)
	})

	t.Run("multipart form missing method rejected", func(t *testing.T) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		require.NoError(t, w.WriteField("amount", "10.00"))
		require.NoError(t, w.WriteField("date", "2025-03-10"))
		require.NoError(t, w.Close())

		_, _, err := bindOn(t, w.FormDataContentType(), &buf)
		assert.Error(t, err)
	})
}
