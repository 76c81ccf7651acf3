// Package vnpay builds signed VNPay payment URLs and validates return
// callbacks. The gateway contract is: submit an amount and transaction
// reference, receive a redirect URL; later receive the same parameter family
// back with a response code, signed with the shared secret.
package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	version         = "2.1.0"
	timestampLayout = "20060102150405"

	// successCode is the gateway's "transaction approved" response code.
	successCode = "00"
)

// ErrInvalidSignature is returned when a callback's signature does not match.
var ErrInvalidSignature = errors.New("vnpay: invalid callback signature")

// ErrMissingParams is returned when a callback lacks the required fields.
var ErrMissingParams = errors.New("vnpay: missing callback parameters")

type Config struct {
	TmnCode    string
	HashSecret string
	// BaseURL is the gateway's payment endpoint.
	BaseURL string
	// Expiry bounds how long a created payment URL stays valid.
	Expiry time.Duration
}

type Client struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) *Client {
	if cfg.Expiry <= 0 {
		cfg.Expiry = 15 * time.Minute
	}
	return &Client{cfg: cfg, now: time.Now}
}

// CreatePaymentURL builds the redirect URL for one payment attempt. The
// amount is scaled to minor units (x100) as the gateway requires.
func (c *Client) CreatePaymentURL(amount decimal.Decimal, txnRef, orderInfo, returnURL, clientIP string) string {
	if clientIP == "" {
		clientIP = "127.0.0.1"
	}
	now := c.now()

	params := url.Values{}
	params.Set("vnp_Version", version)
	params.Set("vnp_Command", "pay")
	params.Set("vnp_TmnCode", c.cfg.TmnCode)
	params.Set("vnp_Amount", amount.Mul(decimal.NewFromInt(100)).Truncate(0).String())
	params.Set("vnp_CreateDate", now.Format(timestampLayout))
	params.Set("vnp_CurrCode", "VND")
	params.Set("vnp_IpAddr", clientIP)
	params.Set("vnp_Locale", "vn")
	params.Set("vnp_OrderInfo", orderInfo)
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_ReturnUrl", returnURL)
	params.Set("vnp_TxnRef", txnRef)
	params.Set("vnp_ExpireDate", now.Add(c.cfg.Expiry).Format(timestampLayout))

	// Encode sorts keys and url-escapes values; the signature covers exactly
	// that canonical string.
	raw := params.Encode()
	return c.cfg.BaseURL + "?" + raw + "&vnp_SecureHash=" + c.sign(raw)
}

// CallbackResult is the validated outcome of a gateway return.
type CallbackResult struct {
	Success       bool
	ResponseCode  string
	TxnRef        string
	TransactionID string
	OrderInfo     string
	Amount        decimal.Decimal
}

// ParseCallback re-validates the signature over the sorted vnp_ parameters
// and reports whether the gateway approved the payment. Success is only true
// for a valid signature with response code 00.
func (c *Client) ParseCallback(query url.Values) (*CallbackResult, error) {
	given := query.Get("vnp_SecureHash")
	if given == "" {
		return nil, ErrMissingParams
	}

	signed := url.Values{}
	for key := range query {
		if !strings.HasPrefix(key, "vnp_") {
			continue
		}
		if key == "vnp_SecureHash" || key == "vnp_SecureHashType" {
			continue
		}
		signed.Set(key, query.Get(key))
	}

	want := c.sign(signed.Encode())
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(given))) {
		return nil, ErrInvalidSignature
	}

	txnRef := query.Get("vnp_TxnRef")
	code := query.Get("vnp_ResponseCode")
	if txnRef == "" || code == "" {
		return nil, ErrMissingParams
	}

	amount := decimal.Zero
	if raw := query.Get("vnp_Amount"); raw != "" {
		if minor, err := strconv.ParseInt(raw, 10, 64); err == nil {
			amount = decimal.New(minor, -2)
		}
	}

	return &CallbackResult{
		Success:       code == successCode,
		ResponseCode:  code,
		TxnRef:        txnRef,
		TransactionID: query.Get("vnp_TransactionNo"),
		OrderInfo:     query.Get("vnp_OrderInfo"),
		Amount:        amount,
	}, nil
}

func (c *Client) sign(data string) string {
	mac := hmac.New(sha512.New, []byte(c.cfg.HashSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
