package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"autotrader/src/externalmodel"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

const (
	tokenPath       = "/oauth2/tokenP"
	tokenFileName   = "token.json"
	tokenExpirySkew = 60 * time.Second
)

// TokenSource supplies a valid access token.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	Invalidate()
}

type cachedToken struct {
	AccessToken string    `json:"access_token"`
	ExpireTime  time.Time `json:"expire_time"`
}

// TokenProvider issues client-credential tokens and caches them in memory
// and in DATA_DIR/token.json until one minute before expiry.
type TokenProvider struct {
	mu        sync.Mutex
	http      *resty.Client
	appKey    string
	appSecret string
	path      string
	cached    cachedToken
	now       func() time.Time
	log       *logger.Entry
}

func NewTokenProvider(cfg Config, gate *Gate) *TokenProvider {
	httpClient := gate.Attach(resty.New().
		SetBaseURL(resolveBaseURL(cfg)).
		SetTimeout(cfg.HTTPTimeout))

	return &TokenProvider{
		http:      httpClient,
		appKey:    cfg.AppKey,
		appSecret: cfg.AppSecret,
		path:      filepath.Join(cfg.DataDir, tokenFileName),
		now:       time.Now,
		log:       logger.WithField("component", "kis_token"),
	}
}

// AccessToken returns the cached token or issues a new one.
func (p *TokenProvider) AccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.valid(p.cached) {
		return p.cached.AccessToken, nil
	}
	if disk, ok := p.readFile(); ok && p.valid(disk) {
		p.cached = disk
		return disk.AccessToken, nil
	}

	tok, err := p.issue(ctx)
	if err != nil {
		return "", err
	}
	p.cached = tok
	p.writeFile(tok)
	return tok.AccessToken, nil
}

// Invalidate drops the cached token so the next call issues a new one.
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = cachedToken{}
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		p.log.WithError(err).Warn("Failed to remove cached token file")
	}
}

func (p *TokenProvider) valid(t cachedToken) bool {
	return t.AccessToken != "" && p.now().Before(t.ExpireTime)
}

func (p *TokenProvider) issue(ctx context.Context) (cachedToken, error) {
	if p.appKey == "" || p.appSecret == "" {
		return cachedToken{}, &AuthenticationError{Op: "token", Message: "KIS_APP_KEY and KIS_APP_SECRET are required"}
	}

	resp, err := p.http.R().
		SetContext(withOp(ctx, "token")).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"grant_type": "client_credentials",
			"appkey":     p.appKey,
			"appsecret":  p.appSecret,
		}).
		AddRetryCondition(RetryTransient.Condition(func(resp *resty.Response, err error) error {
			_, terr := interpretToken(resp, err)
			return terr
		})).
		Post(tokenPath)
	out, err := interpretToken(resp, err)
	if err != nil {
		p.log.WithError(err).Error("Failed to issue access token")
		return cachedToken{}, err
	}

	expiry := p.now().Add(time.Duration(out.ExpiresIn)*time.Second - tokenExpirySkew)
	p.log.WithField("expire_time", expiry.Format(time.RFC3339)).Info("Issued new access token")

	return cachedToken{AccessToken: out.AccessToken, ExpireTime: expiry}, nil
}

func interpretToken(resp *resty.Response, err error) (externalmodel.KISTokenResponse, error) {
	var out externalmodel.KISTokenResponse
	if err != nil {
		return out, transportError("token", err)
	}
	if resp.StatusCode() >= 500 || resp.StatusCode() == http.StatusTooManyRequests {
		return out, &APIRequestError{Op: "token", StatusCode: resp.StatusCode(), Message: string(resp.Body())}
	}
	if resp.StatusCode() != http.StatusOK {
		return out, &AuthenticationError{Op: "token", StatusCode: resp.StatusCode(), Message: string(resp.Body())}
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return out, &AuthenticationError{Op: "token", StatusCode: resp.StatusCode(), Err: err}
	}
	if out.AccessToken == "" {
		return out, &AuthenticationError{Op: "token", Code: out.ErrorCode, Message: out.ErrorDesc}
	}
	return out, nil
}

func (p *TokenProvider) readFile() (cachedToken, bool) {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return cachedToken{}, false
	}
	var t cachedToken
	if err := json.Unmarshal(raw, &t); err != nil {
		p.log.WithError(err).Warn("Ignoring unreadable token cache")
		return cachedToken{}, false
	}
	return t, true
}

func (p *TokenProvider) writeFile(t cachedToken) {
	raw, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := os.WriteFile(p.path, raw, 0o600); err != nil {
		p.log.WithError(fmt.Errorf("write %s: %w", p.path, err)).Warn("Failed to cache access token")
	}
}
