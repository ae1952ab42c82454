package externalmodel

import "encoding/json"

// KISResponse is the envelope every KIS Open API endpoint returns.
// rt_cd "0" means success.
type KISResponse struct {
	RtCd    string          `json:"rt_cd"`
	MsgCd   string          `json:"msg_cd"`
	Msg1    string          `json:"msg1"`
	Output  json.RawMessage `json:"output,omitempty"`
	Output1 json.RawMessage `json:"output1,omitempty"`
	Output2 json.RawMessage `json:"output2,omitempty"`
}

// OK reports the explicit success code.
func (r KISResponse) OK() bool {
	return r.RtCd == "0"
}

// KISTokenResponse is returned by /oauth2/tokenP.
type KISTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	ErrorCode   string `json:"error_code,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

// KISPriceOutput is the inquire-price output object.
type KISPriceOutput struct {
	StckPrpr   string `json:"stck_prpr"`
	StckOprc   string `json:"stck_oprc"`
	StckHgpr   string `json:"stck_hgpr"`
	StckLwpr   string `json:"stck_lwpr"`
	AcmlVol    string `json:"acml_vol"`
	PrdyCtrt   string `json:"prdy_ctrt"`
	HtsKorIsnm string `json:"hts_kor_isnm"`
}

// KISDailyRow is one inquire-daily-price row.
type KISDailyRow struct {
	StckBsopDate string `json:"stck_bsop_date"`
	StckOprc     string `json:"stck_oprc"`
	StckHgpr     string `json:"stck_hgpr"`
	StckLwpr     string `json:"stck_lwpr"`
	StckClpr     string `json:"stck_clpr"`
	AcmlVol      string `json:"acml_vol"`
}

// KISHoldingRow is one output1 row of inquire-balance.
type KISHoldingRow struct {
	Pdno      string `json:"pdno"`
	PrdtName  string `json:"prdt_name"`
	HldgQty   string `json:"hldg_qty"`
	PchsAvgPr string `json:"pchs_avg_pric"`
	Prpr      string `json:"prpr"`
}

// KISBalanceSummary is the output2 row of inquire-balance.
type KISBalanceSummary struct {
	DncaTotAmt      string `json:"dnca_tot_amt"`
	TotEvluAmt      string `json:"tot_evlu_amt"`
	PrvsRcdlExccAmt string `json:"prvs_rcdl_excc_amt"`
}

// KISOrderOutput is the order-cash output object.
type KISOrderOutput struct {
	KrxFwdgOrdOrgno string `json:"KRX_FWDG_ORD_ORGNO"`
	Odno            string `json:"ODNO"`
	OrdTmd          string `json:"ORD_TMD"`
}

// KISConditionRow is one saved-screening (psearch-result) row.
type KISConditionRow struct {
	Code         string `json:"code"`
	MkscShrnIscd string `json:"mksc_shrn_iscd"`
	Name         string `json:"name"`
	HtsKorIsnm   string `json:"hts_kor_isnm"`
	Price        string `json:"price"`
	Vol          string `json:"acml_vol"`
}

// KISVolumeRankRow is one volume-rank row.
type KISVolumeRankRow struct {
	MkscShrnIscd string `json:"mksc_shrn_iscd"`
	HtsKorIsnm   string `json:"hts_kor_isnm"`
	StckPrpr     string `json:"stck_prpr"`
	AcmlVol      string `json:"acml_vol"`
}
