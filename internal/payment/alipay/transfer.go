package alipay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const transferMethod = "alipay.fund.trans.toaccount.transfer"

// TransferInput 支付宝单笔转账输入。
type TransferInput struct {
	OutBizNo      string
	PayeeAccount  string
	PayeeRealName string
	Amount        string
	Remark        string
}

// TransferResult 支付宝单笔转账返回。
type TransferResult struct {
	OrderID  string
	OutBizNo string
	PayDate  string
	Raw      map[string]interface{}
}

// Transfer 发起支付宝单笔转账到账户。
func Transfer(ctx context.Context, cfg *Config, input TransferInput) (*TransferResult, error) {
	if err := validateTransferConfig(cfg); err != nil {
		return nil, err
	}
	input.OutBizNo = strings.TrimSpace(input.OutBizNo)
	input.PayeeAccount = strings.TrimSpace(input.PayeeAccount)
	input.Amount = strings.TrimSpace(input.Amount)
	if input.OutBizNo == "" || input.PayeeAccount == "" || input.Amount == "" {
		return nil, fmt.Errorf("%w: out_biz_no/payee_account/amount is required", ErrConfigInvalid)
	}
	amount, err := decimal.NewFromString(input.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount is invalid", ErrConfigInvalid)
	}
	input.Amount = amount.Round(2).StringFixed(2)

	bizContent := map[string]interface{}{
		"out_biz_no":    input.OutBizNo,
		"payee_type":    "ALIPAY_LOGONID",
		"payee_account": input.PayeeAccount,
		"amount":        input.Amount,
	}
	if strings.TrimSpace(input.PayeeRealName) != "" {
		bizContent["payee_real_name"] = strings.TrimSpace(input.PayeeRealName)
	}
	if strings.TrimSpace(input.Remark) != "" {
		bizContent["remark"] = strings.TrimSpace(input.Remark)
	}
	bizContentBytes, err := json.Marshal(bizContent)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal biz_content failed", ErrConfigInvalid)
	}

	params := map[string]string{
		"app_id":      cfg.AppID,
		"method":      transferMethod,
		"format":      "JSON",
		"charset":     "utf-8",
		"sign_type":   cfg.SignType,
		"timestamp":   time.Now().Format("2006-01-02 15:04:05"),
		"version":     "1.0",
		"biz_content": string(bizContentBytes),
	}
	if strings.TrimSpace(cfg.AppCertSN) != "" {
		params["app_cert_sn"] = strings.TrimSpace(cfg.AppCertSN)
	}
	if strings.TrimSpace(cfg.AlipayRootCertSN) != "" {
		params["alipay_root_cert_sn"] = strings.TrimSpace(cfg.AlipayRootCertSN)
	}

	sign, err := signContent(buildSignContent(params), cfg.PrivateKey, cfg.SignType)
	if err != nil {
		return nil, err
	}
	params["sign"] = sign

	responseBody, err := postGateway(ctx, cfg.GatewayURL, params)
	if err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(responseBody, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	responseKey := strings.ReplaceAll(transferMethod, ".", "_") + "_response"
	responseNode, ok := raw[responseKey].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s not found", ErrResponseInvalid, responseKey)
	}

	code := strings.TrimSpace(readString(responseNode, "code"))
	if code != "10000" {
		errMsg := strings.TrimSpace(readString(responseNode, "sub_msg"))
		if errMsg == "" {
			errMsg = strings.TrimSpace(readString(responseNode, "msg"))
		}
		if errMsg == "" {
			errMsg = "code=" + code
		}
		return nil, fmt.Errorf("%w: %s", ErrResponseInvalid, errMsg)
	}

	result := &TransferResult{
		OrderID:  strings.TrimSpace(readString(responseNode, "order_id")),
		OutBizNo: strings.TrimSpace(readString(responseNode, "out_biz_no")),
		PayDate:  strings.TrimSpace(readString(responseNode, "pay_date")),
		Raw:      raw,
	}
	if result.OutBizNo == "" {
		result.OutBizNo = input.OutBizNo
	}
	if result.OrderID == "" {
		return nil, fmt.Errorf("%w: order_id is empty", ErrResponseInvalid)
	}
	return result, nil
}

func validateTransferConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.AppID) == "" {
		return fmt.Errorf("%w: app_id is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		return fmt.Errorf("%w: private_key is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.GatewayURL) == "" {
		return fmt.Errorf("%w: gateway_url is required", ErrConfigInvalid)
	}
	if cfg.SignType != "RSA2" && cfg.SignType != "RSA" {
		return fmt.Errorf("%w: sign_type is invalid", ErrConfigInvalid)
	}
	return nil
}
