package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TransactionRequest is one checkout attempt sent to the gateway. It is never
// mutated once MAC is set.
type TransactionRequest struct {
	AppID         int64  `json:"app_id"`
	TransactionID string `json:"app_trans_id"`
	BuyerID       string `json:"app_user"`
	CreatedAt     int64  `json:"app_time"`
	Item          string `json:"item"`
	EmbedData     string `json:"embed_data"`
	Amount        Money  `json:"amount"`
	Description   string `json:"description"`
	BankCode      string `json:"bank_code"`
	CallbackURL   string `json:"callback_url"`
	MAC           string `json:"mac"`
}

// MACFields returns the fields covered by the request MAC, in the order the
// gateway expects them.
func (r TransactionRequest) MACFields() []string {
	return []string{
		strconv.FormatInt(r.AppID, 10),
		r.TransactionID,
		r.BuyerID,
		r.Amount.String(),
		strconv.FormatInt(r.CreatedAt, 10),
		r.EmbedData,
		r.Item,
	}
}

// EmbedData is the checkout context carried through the gateway and returned
// in the callback. The gateway does not persist it anywhere else.
type EmbedData struct {
	Address     json.RawMessage `json:"address"`
	Discounts   DiscountSet     `json:"discountOptions"`
	DeviceToken string          `json:"fcm,omitempty"`
}

// CallbackEnvelope is the body the gateway posts to the callback URL.
type CallbackEnvelope struct {
	Data string `json:"data"`
	MAC  string `json:"mac"`
}

// CallbackData is the decoded envelope data blob.
type CallbackData struct {
	AppID          int64  `json:"app_id"`
	TransactionID  string `json:"app_trans_id"`
	AppTime        int64  `json:"app_time"`
	BuyerID        string `json:"app_user"`
	Amount         Money  `json:"amount"`
	EmbedData      string `json:"embed_data"`
	Item           string `json:"item"`
	GatewayTransID int64  `json:"zp_trans_id"`
	ServerTime     int64  `json:"server_time"`
}

// CallbackPayload is a fully parsed callback: the data blob plus the cart and
// context decoded from it.
type CallbackPayload struct {
	Data    CallbackData
	Cart    Cart
	Context EmbedData
}

// ParseCallbackData decodes a callback data blob. Any decoding failure or a
// missing transaction id, buyer id, cart or address is a ValidationError.
func ParseCallbackData(raw string) (*CallbackPayload, error) {
	var data CallbackData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, &ValidationError{Field: "data", Reason: fmt.Sprintf("invalid json: %v", err)}
	}
	if strings.TrimSpace(data.TransactionID) == "" {
		return nil, &ValidationError{Field: "app_trans_id", Reason: "missing"}
	}
	if strings.TrimSpace(data.BuyerID) == "" {
		return nil, &ValidationError{Field: "app_user", Reason: "missing"}
	}

	var cart Cart
	if strings.TrimSpace(data.Item) == "" {
		return nil, &ValidationError{Field: "item", Reason: "missing"}
	}
	if err := json.Unmarshal([]byte(data.Item), &cart); err != nil {
		return nil, &ValidationError{Field: "item", Reason: fmt.Sprintf("invalid json: %v", err)}
	}
	if err := cart.Validate(); err != nil {
		return nil, err
	}

	var embed EmbedData
	if strings.TrimSpace(data.EmbedData) != "" {
		if err := json.Unmarshal([]byte(data.EmbedData), &embed); err != nil {
			return nil, &ValidationError{Field: "embed_data", Reason: fmt.Sprintf("invalid json: %v", err)}
		}
	}
	if len(embed.Address) == 0 || string(embed.Address) == "null" {
		return nil, &ValidationError{Field: "embed_data.address", Reason: "missing"}
	}

	return &CallbackPayload{Data: data, Cart: cart, Context: embed}, nil
}
