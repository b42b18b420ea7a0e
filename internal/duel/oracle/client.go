// Package oracle 은 비밀 단어에 대한 예/아니오 판정 서버 클라이언트를 제공한다.
package oracle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/park285/word-duel-go/internal/common/httpclient"
	"github.com/park285/word-duel-go/internal/common/httputil"
	dconfig "github.com/park285/word-duel-go/internal/duel/config"
	"github.com/park285/word-duel-go/internal/duel/model"
)

// Client 는 질문 판정 인터페이스다.
// 호출 실패 시 오류를 반환하며, 판정 불가 처리(NEUTRAL 강등)는 호출자 몫이다.
type Client interface {
	Answer(ctx context.Context, secretWord, category, question string) (model.Verdict, error)
}

// HTTPClient 는 판정 서버의 HTTP/JSON 구현체다.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// NewHTTPClient 는 HTTPClient 를 생성한다.
func NewHTTPClient(cfg dconfig.OracleConfig, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	client := httpclient.New(httpclient.Config{
		Timeout:        cfg.Timeout,
		ConnectTimeout: cfg.ConnectTimeout,
		HTTP2Enabled:   cfg.HTTP2Enabled,
	})
	// 분산 추적: 나가는 요청에 trace context 전파
	client.Transport = otelhttp.NewTransport(client.Transport)

	return &HTTPClient{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

type answerRequest struct {
	SecretWord string `json:"secretWord"`
	Category   string `json:"category"`
	Question   string `json:"question"`
}

type answerResponse struct {
	Answer string `json:"answer"`
}

// questionSanitizer 는 판정 전 질문에서 따옴표를 제거한다.
// 따옴표가 섞이면 판정 프롬프트가 오염될 수 있다.
var questionSanitizer = strings.NewReplacer(`"`, "", "'", "")

// Answer 는 비밀 단어에 대한 질문을 판정 서버로 보내고 판정을 반환한다.
func (c *HTTPClient) Answer(ctx context.Context, secretWord, category, question string) (model.Verdict, error) {
	payload, err := json.Marshal(answerRequest{
		SecretWord: secretWord,
		Category:   category,
		Question:   strings.TrimSpace(questionSanitizer.Replace(question)),
	})
	if err != nil {
		return model.VerdictNeutral, fmt.Errorf("oracle marshal: %w", err)
	}

	url := c.baseURL + "/api/oracle/answer"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return model.VerdictNeutral, fmt.Errorf("oracle request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(httputil.HeaderAPIKey, c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return model.VerdictNeutral, fmt.Errorf("oracle request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return model.VerdictNeutral, fmt.Errorf("oracle read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.VerdictNeutral, fmt.Errorf(
			"oracle http status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)),
		)
	}

	var parsed answerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return model.VerdictNeutral, fmt.Errorf("oracle unmarshal: %w", err)
	}

	return NormalizeVerdict(parsed.Answer), nil
}

// NormalizeVerdict 는 판정 서버 응답 문자열을 Verdict 로 정규화한다.
// 양끝 공백/따옴표를 제거하고 대문자로 비교하며, YES/NO 외에는 NEUTRAL 로 취급한다.
func NormalizeVerdict(raw string) model.Verdict {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.Trim(cleaned, `"'`)
	cleaned = strings.ToUpper(strings.TrimSpace(cleaned))

	switch cleaned {
	case string(model.VerdictYes):
		return model.VerdictYes
	case string(model.VerdictNo):
		return model.VerdictNo
	default:
		return model.VerdictNeutral
	}
}
