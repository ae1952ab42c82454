package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"autotrader/src/externalmodel"
	"autotrader/src/mapper"
	"autotrader/src/model"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const (
	MockBaseURL = "https://openapivts.koreainvestment.com:29443"
	RealBaseURL = "https://openapi.koreainvestment.com:9443"

	pathPrice       = "/uapi/domestic-stock/v1/quotations/inquire-price"
	pathDailyPrice  = "/uapi/domestic-stock/v1/quotations/inquire-daily-price"
	pathBalance     = "/uapi/domestic-stock/v1/trading/inquire-balance"
	pathOrderCash   = "/uapi/domestic-stock/v1/trading/order-cash"
	pathCondition   = "/uapi/domestic-stock/v1/quotations/psearch-result"
	pathVolumeRank  = "/uapi/domestic-stock/v1/quotations/volume-rank"
	defaultAcntPrdt = "01"
)

func resolveBaseURL(cfg Config) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	if cfg.MockTrade {
		return MockBaseURL
	}
	return RealBaseURL
}

// SplitAccount splits "XXXXXXXX-YY", a 10 digit number or an 8 digit number
// into the CANO and ACNT_PRDT_CD request fields.
func SplitAccount(account string) (string, string, error) {
	account = strings.TrimSpace(account)
	if parts := strings.SplitN(account, "-", 2); len(parts) == 2 {
		if parts[0] == "" || parts[1] == "" {
			return "", "", fmt.Errorf("invalid account number %q", account)
		}
		return parts[0], parts[1], nil
	}
	if _, err := strconv.ParseUint(account, 10, 64); err != nil {
		return "", "", fmt.Errorf("invalid account number %q", account)
	}
	switch len(account) {
	case 10:
		return account[:8], account[8:], nil
	case 8:
		return account, defaultAcntPrdt, nil
	default:
		return "", "", fmt.Errorf("invalid account number %q: expected 8 or 10 digits", account)
	}
}

// OrderRequest is a cash order. A zero Price places a market order.
type OrderRequest struct {
	Symbol   string
	Side     model.OrderSide
	Quantity int64
	Price    decimal.Decimal
}

// OrderResult carries the broker's answer to an order.
type OrderResult struct {
	OrderNo string
	Code    string
	Message string
	Raw     string
}

// Broker is the set of KIS operations the trading components consume.
type Broker interface {
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	DailyOHLCV(ctx context.Context, symbol string, days int) (model.Candles, error)
	CashBalance(ctx context.Context) (decimal.Decimal, error)
	Holdings(ctx context.Context) ([]model.Holding, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
}

// Client is the KIS Open API REST client. Every call goes through the gate.
type Client struct {
	http      *resty.Client
	tokens    TokenSource
	appKey    string
	appSecret string
	mock      bool
	cano      string
	acntPrdt  string
	log       *logger.Entry
}

func NewClient(cfg Config, gate *Gate, tokens TokenSource) (*Client, error) {
	cano, prdt, err := SplitAccount(cfg.AccountNo)
	if err != nil {
		return nil, err
	}

	httpClient := gate.Attach(resty.New().
		SetBaseURL(resolveBaseURL(cfg)).
		SetTimeout(cfg.HTTPTimeout).
		SetHeader("Content-Type", "application/json; charset=utf-8"))

	return &Client{
		http:      httpClient,
		tokens:    tokens,
		appKey:    cfg.AppKey,
		appSecret: cfg.AppSecret,
		mock:      cfg.MockTrade,
		cano:      cano,
		acntPrdt:  prdt,
		log:       logger.WithField("component", "kis_client"),
	}, nil
}

type request struct {
	op     string
	method string
	path   string
	trID   string
	query  map[string]string
	body   interface{}
	policy RetryPolicy
	order  bool
	symbol string
}

// classifyStatus turns an HTTP response into the error taxonomy. Bodies
// carrying auth or throttling message codes win over the status code.
func classifyStatus(op string, resp *resty.Response, env *externalmodel.KISResponse) error {
	code := resp.StatusCode()
	if env != nil && authMessageCodes[env.MsgCd] {
		return &AuthenticationError{Op: op, StatusCode: code, Code: env.MsgCd, Message: env.Msg1}
	}
	if env != nil && env.MsgCd == throttledMessageCode {
		return &APIRequestError{Op: op, StatusCode: code, Code: env.MsgCd, Message: env.Msg1, NotSent: true}
	}
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &AuthenticationError{Op: op, StatusCode: code, Message: string(resp.Body())}
	case code == http.StatusTooManyRequests:
		return &APIRequestError{Op: op, StatusCode: code, Message: string(resp.Body()), NotSent: true}
	case code >= 500 || code == http.StatusRequestTimeout:
		return &APIRequestError{Op: op, StatusCode: code, Message: string(resp.Body())}
	default:
		return &RequestError{Op: op, StatusCode: code, Message: string(resp.Body())}
	}
}

func (c *Client) do(ctx context.Context, r request) (*externalmodel.KISResponse, string, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, "", err
	}

	req := c.http.R().
		SetContext(withOp(ctx, r.op)).
		SetHeaders(map[string]string{
			"authorization": "Bearer " + token,
			"appkey":        c.appKey,
			"appsecret":     c.appSecret,
			"tr_id":         r.trID,
			"custtype":      "P",
		}).
		AddRetryCondition(r.policy.Condition(func(resp *resty.Response, err error) error {
			_, cerr := interpret(r, resp, err)
			return cerr
		}))
	if len(r.query) > 0 {
		req = req.SetQueryParams(r.query)
	}
	if r.body != nil {
		req = req.SetBody(r.body)
	}

	resp, err := req.Execute(r.method, r.path)
	env, err := interpret(r, resp, err)
	if err != nil && IsAuthentication(err) {
		c.tokens.Invalidate()
	}
	var raw string
	if resp != nil {
		raw = string(resp.Body())
	}
	return env, raw, err
}

// interpret turns one attempt's outcome into a decoded envelope or an error
// from the taxonomy.
func interpret(r request, resp *resty.Response, err error) (*externalmodel.KISResponse, error) {
	if err != nil {
		return nil, transportError(r.op, err)
	}

	var parsed externalmodel.KISResponse
	if jerr := json.Unmarshal(resp.Body(), &parsed); jerr != nil {
		if cerr := classifyStatus(r.op, resp, nil); cerr != nil {
			return nil, cerr
		}
		return nil, &RequestError{Op: r.op, StatusCode: resp.StatusCode(), Message: "undecodable body: " + jerr.Error()}
	}
	if cerr := classifyStatus(r.op, resp, &parsed); cerr != nil {
		return nil, cerr
	}

	if !parsed.OK() {
		if r.order {
			return nil, &OrderRejectedError{Symbol: r.symbol, Code: parsed.MsgCd, Message: parsed.Msg1}
		}
		return nil, &APIRequestError{Op: r.op, StatusCode: resp.StatusCode(), Code: parsed.MsgCd, Message: parsed.Msg1}
	}
	return &parsed, nil
}

func (c *Client) trID(mockID, realID string) string {
	if c.mock {
		return mockID
	}
	return realID
}

// CurrentPrice returns the last traded price.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	env, _, err := c.do(ctx, request{
		op:     "current_price",
		method: http.MethodGet,
		path:   pathPrice,
		trID:   "FHKST01010100",
		query: map[string]string{
			"fid_cond_mrkt_div_code": "J",
			"fid_input_iscd":         symbol,
		},
	})
	if err != nil {
		return decimal.Zero, err
	}

	var out externalmodel.KISPriceOutput
	if err := json.Unmarshal(env.Output, &out); err != nil {
		return decimal.Zero, &RequestError{Op: "current_price", Message: err.Error()}
	}
	price := mapper.DecimalSafe("stck_prpr", out.StckPrpr)
	if !price.IsPositive() {
		return decimal.Zero, &APIRequestError{Op: "current_price", Message: "empty price for " + symbol}
	}
	return price, nil
}

// DailyOHLCV returns up to days daily bars, newest first. Index 0 is today
// while the market is open.
func (c *Client) DailyOHLCV(ctx context.Context, symbol string, days int) (model.Candles, error) {
	env, _, err := c.do(ctx, request{
		op:     "daily_ohlcv",
		method: http.MethodGet,
		path:   pathDailyPrice,
		trID:   "FHKST01010400",
		query: map[string]string{
			"fid_cond_mrkt_div_code": "J",
			"fid_input_iscd":         symbol,
			"fid_org_adj_prc":        "1",
			"fid_period_div_code":    "D",
		},
	})
	if err != nil {
		return nil, err
	}

	payload := env.Output2
	if len(payload) == 0 || string(payload) == "null" {
		payload = env.Output
	}
	var rows []externalmodel.KISDailyRow
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &rows); err != nil {
			return nil, &RequestError{Op: "daily_ohlcv", Message: err.Error()}
		}
	}

	candles := mapper.MapDailyRows(symbol, rows)
	if days > 0 && len(candles) > days {
		candles = candles[:days]
	}
	return candles, nil
}

func (c *Client) balance(ctx context.Context, inquiry string) ([]externalmodel.KISHoldingRow, externalmodel.KISBalanceSummary, error) {
	env, _, err := c.do(ctx, request{
		op:     "balance",
		method: http.MethodGet,
		path:   pathBalance,
		trID:   c.trID("VTTC8434R", "TTTC8434R"),
		query: map[string]string{
			"CANO":                  c.cano,
			"ACNT_PRDT_CD":          c.acntPrdt,
			"AFHR_FLPR_YN":          "N",
			"OFL_YN":                "",
			"INQR_DVSN":             inquiry,
			"UNPR_DVSN":             "01",
			"FUND_STTL_ICLD_YN":     "N",
			"FNCG_AMT_AUTO_RDPT_YN": "N",
			"PRCS_DVSN":             "01",
			"CTX_AREA_FK100":        "",
			"CTX_AREA_NK100":        "",
		},
	})
	if err != nil {
		return nil, externalmodel.KISBalanceSummary{}, err
	}

	var rows []externalmodel.KISHoldingRow
	if len(env.Output1) > 0 {
		if err := json.Unmarshal(env.Output1, &rows); err != nil {
			return nil, externalmodel.KISBalanceSummary{}, &RequestError{Op: "balance", Message: err.Error()}
		}
	}
	var summaries []externalmodel.KISBalanceSummary
	if len(env.Output2) > 0 {
		if err := json.Unmarshal(env.Output2, &summaries); err != nil {
			return nil, externalmodel.KISBalanceSummary{}, &RequestError{Op: "balance", Message: err.Error()}
		}
	}
	var summary externalmodel.KISBalanceSummary
	if len(summaries) > 0 {
		summary = summaries[0]
	}
	return rows, summary, nil
}

// CashBalance returns orderable cash. Inquiry mode 01 is tried first and
// mode 02 when the first reports zero.
func (c *Client) CashBalance(ctx context.Context) (decimal.Decimal, error) {
	_, summary, err := c.balance(ctx, "01")
	if err != nil {
		return decimal.Zero, err
	}
	cash := mapper.CashFromSummary(summary)
	if cash.IsPositive() {
		return cash, nil
	}

	_, summary, err = c.balance(ctx, "02")
	if err != nil {
		return decimal.Zero, err
	}
	return mapper.CashFromSummary(summary), nil
}

// Holdings returns the broker-reported positions.
func (c *Client) Holdings(ctx context.Context) ([]model.Holding, error) {
	rows, _, err := c.balance(ctx, "02")
	if err != nil {
		return nil, err
	}
	return mapper.MapHoldings(rows), nil
}

// PlaceOrder submits a cash order. Only failures before the request reached
// the broker are retried. A non-ok result code is an *OrderRejectedError.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	if req.Quantity < 1 {
		return OrderResult{}, &RequestError{Op: "order", Message: "quantity must be positive"}
	}

	var trID string
	switch req.Side {
	case model.SideBuy:
		trID = c.trID("VTTC0802U", "TTTC0802U")
	case model.SideSell:
		trID = c.trID("VTTC0801U", "TTTC0801U")
	default:
		return OrderResult{}, &RequestError{Op: "order", Message: "unknown side " + string(req.Side)}
	}

	ordDvsn := "01"
	ordUnpr := "0"
	if req.Price.IsPositive() {
		ordDvsn = "00"
		ordUnpr = req.Price.Truncate(0).String()
	}

	env, raw, err := c.do(ctx, request{
		op:     "order",
		method: http.MethodPost,
		path:   pathOrderCash,
		trID:   trID,
		body: map[string]string{
			"CANO":         c.cano,
			"ACNT_PRDT_CD": c.acntPrdt,
			"PDNO":         req.Symbol,
			"ORD_DVSN":     ordDvsn,
			"ORD_QTY":      strconv.FormatInt(req.Quantity, 10),
			"ORD_UNPR":     ordUnpr,
		},
		policy: RetryBeforeSend,
		order:  true,
		symbol: req.Symbol,
	})

	result := OrderResult{Raw: raw}
	if err != nil {
		var rej *OrderRejectedError
		if errors.As(err, &rej) {
			result.Code = rej.Code
			result.Message = rej.Message
		}
		return result, err
	}

	result.Code = env.MsgCd
	result.Message = env.Msg1
	var out externalmodel.KISOrderOutput
	if len(env.Output) > 0 && json.Unmarshal(env.Output, &out) == nil {
		result.OrderNo = out.Odno
	}
	return result, nil
}

// ConditionResult runs the user's saved screening query number seq.
func (c *Client) ConditionResult(ctx context.Context, userID, seq string) ([]model.Candidate, error) {
	env, _, err := c.do(ctx, request{
		op:     "condition_search",
		method: http.MethodGet,
		path:   pathCondition,
		trID:   c.trID("VHKST03900400", "HHKST03900400"),
		query: map[string]string{
			"user_id": userID,
			"seq":     seq,
		},
	})
	if err != nil {
		return nil, err
	}

	payload := env.Output2
	if len(payload) == 0 || string(payload) == "null" {
		payload = env.Output
	}
	var rows []externalmodel.KISConditionRow
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &rows); err != nil {
			return nil, &RequestError{Op: "condition_search", Message: err.Error()}
		}
	}
	return mapper.MapConditionRows(rows), nil
}

// VolumeRank returns the day's most traded symbols within a price band.
func (c *Client) VolumeRank(ctx context.Context, minPrice, maxPrice int64) ([]model.Candidate, error) {
	env, _, err := c.do(ctx, request{
		op:     "volume_rank",
		method: http.MethodGet,
		path:   pathVolumeRank,
		trID:   "FHPST01710000",
		query: map[string]string{
			"FID_COND_MRKT_DIV_CODE": "J",
			"FID_COND_SCR_DIV_CODE":  "20171",
			"FID_INPUT_ISCD":         "0000",
			"FID_DIV_CLS_CODE":       "0",
			"FID_BLNG_CLS_CODE":      "0",
			"FID_TRGT_CLS_CODE":      "111111111",
			"FID_TRGT_EXLS_CLS_CODE": "000000",
			"FID_INPUT_PRICE_1":      strconv.FormatInt(minPrice, 10),
			"FID_INPUT_PRICE_2":      strconv.FormatInt(maxPrice, 10),
			"FID_VOL_CNT":            "10000",
			"FID_INPUT_DATE_1":       "",
		},
	})
	if err != nil {
		return nil, err
	}

	var rows []externalmodel.KISVolumeRankRow
	if len(env.Output) > 0 {
		if err := json.Unmarshal(env.Output, &rows); err != nil {
			return nil, &RequestError{Op: "volume_rank", Message: err.Error()}
		}
	}
	return mapper.MapVolumeRankRows(rows), nil
}
