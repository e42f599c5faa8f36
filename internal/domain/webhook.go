package domain

import "encoding/json"

// GatewayTxnResult is the subset of the NETS s2sTxnEnd callback the portal
// reads after the MAC is verified. Unknown fields are kept in Raw.
type GatewayTxnResult struct {
	MerchantTxnRef string          `json:"merchantTxnRef"`
	NetsTxnRef     string          `json:"netsTxnRef"`
	NetsTxnStatus  string          `json:"netsTxnStatus"`
	StageRespCode  string          `json:"stageRespCode"`
	TxnAmount      string          `json:"txnAmount"`
	Raw            json.RawMessage `json:"-"`
}

// WebhookEnvelope matches the NETS callback shape {"msg": {...}}.
type WebhookEnvelope struct {
	Msg GatewayTxnResult `json:"msg"`
}
