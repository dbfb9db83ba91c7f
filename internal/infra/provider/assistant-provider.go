package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"dispute-assistant/internal/domain/apperrors"
	"dispute-assistant/internal/domain/dto"
	"dispute-assistant/internal/domain/entities"
	"dispute-assistant/internal/infra/logger"

	"github.com/sirupsen/logrus"
)

// AssistantProvider talks to the legal-reasoning backend over HTTP. The base
// URL is injected at construction; the client is expected to carry a timeout.
type AssistantProvider struct {
	Logger     *logger.Logger
	HttpClient *http.Client
	BaseURL    string
}

func NewAssistantProvider(log *logger.Logger, httpClient *http.Client, baseURL string) *AssistantProvider {
	return &AssistantProvider{
		Logger:     log,
		HttpClient: httpClient,
		BaseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Chat sends one user turn and returns the assistant reply, including the
// report flag and any generated PDF payloads.
func (ap *AssistantProvider) Chat(ctx context.Context, message string) (dto.ChatResponse, error) {
	payload, err := json.Marshal(dto.ChatRequest{Message: message})
	if err != nil {
		ap.Logger.Error(fmt.Sprintf("Failed to marshal chat payload: %v", err))
		return dto.ChatResponse{}, fmt.Errorf("failed to marshal chat payload: %w", err)
	}

	body, err := ap.post(ctx, "chat", "/chat", "application/json", bytes.NewReader(payload))
	if err != nil {
		return dto.ChatResponse{}, err
	}

	var chatResponse dto.ChatResponse
	if err := json.Unmarshal(body, &chatResponse); err != nil {
		ap.Logger.Error(fmt.Sprintf("Failed to unmarshal chat response: %v", err))
		return dto.ChatResponse{}, &apperrors.TransportError{Op: "chat", Err: err}
	}
	return chatResponse, nil
}

// UploadFiles uploads all staged attachments in a single multipart request.
// Only the status matters; the response body is discarded.
func (ap *AssistantProvider) UploadFiles(ctx context.Context, files []entities.PendingAttachment) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, file := range files {
		part, err := writer.CreateFormFile("file", file.Filename)
		if err != nil {
			return fmt.Errorf("failed to build multipart body: %w", err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return fmt.Errorf("failed to build multipart body: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	if _, err := ap.post(ctx, "upload", "/upload", writer.FormDataContentType(), &buf); err != nil {
		return err
	}

	ap.Logger.Info("Attachments uploaded", logrus.Fields{"count": len(files)})
	return nil
}

// ConfirmReport relays the user's report decision as a form-encoded flag.
func (ap *AssistantProvider) ConfirmReport(ctx context.Context, confirmed bool) (dto.ConfirmReportResponse, error) {
	form := url.Values{}
	form.Set("confirmed", strconv.FormatBool(confirmed))

	body, err := ap.post(ctx, "confirm-report", "/confirm-report", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return dto.ConfirmReportResponse{}, err
	}

	var confirmResponse dto.ConfirmReportResponse
	if err := json.Unmarshal(body, &confirmResponse); err != nil {
		ap.Logger.Error(fmt.Sprintf("Failed to unmarshal confirm-report response: %v", err))
		return dto.ConfirmReportResponse{}, &apperrors.TransportError{Op: "confirm-report", Err: err}
	}
	return confirmResponse, nil
}

// AfterReport runs the post-confirmation follow-up exchange, carrying the most
// recent bot reply text as context.
func (ap *AssistantProvider) AfterReport(ctx context.Context, message string) (dto.AfterReportResponse, error) {
	payload, err := json.Marshal(dto.AfterReportRequest{Message: message})
	if err != nil {
		ap.Logger.Error(fmt.Sprintf("Failed to marshal after-report payload: %v", err))
		return dto.AfterReportResponse{}, fmt.Errorf("failed to marshal after-report payload: %w", err)
	}

	body, err := ap.post(ctx, "after-report", "/after-report", "application/json", bytes.NewReader(payload))
	if err != nil {
		return dto.AfterReportResponse{}, err
	}

	var afterResponse dto.AfterReportResponse
	if err := json.Unmarshal(body, &afterResponse); err != nil {
		ap.Logger.Error(fmt.Sprintf("Failed to unmarshal after-report response: %v", err))
		return dto.AfterReportResponse{}, &apperrors.TransportError{Op: "after-report", Err: err}
	}
	return afterResponse, nil
}

// post performs one backend exchange and returns the response body. Transport
// failures and non-2xx statuses both come back as *apperrors.TransportError.
func (ap *AssistantProvider) post(ctx context.Context, op, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ap.BaseURL+path, body)
	if err != nil {
		ap.Logger.Error(fmt.Sprintf("Failed to create HTTP request %v", err))
		return nil, &apperrors.TransportError{Op: op, Err: err}
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	res, err := ap.HttpClient.Do(req)
	if err != nil {
		ap.Logger.Error(fmt.Sprintf("HTTP request failed %v", err))
		return nil, &apperrors.TransportError{Op: op, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		responseBody, _ := io.ReadAll(res.Body)
		ap.Logger.Error(fmt.Sprintf("Unexpected HTTP status %s response_body %s", res.Status, string(responseBody)))
		return nil, &apperrors.TransportError{Op: op, Status: res.StatusCode}
	}

	responseBody, err := io.ReadAll(res.Body)
	if err != nil {
		ap.Logger.Error(fmt.Sprintf("Failed to read response body %v", err))
		return nil, &apperrors.TransportError{Op: op, Err: err}
	}
	return responseBody, nil
}
