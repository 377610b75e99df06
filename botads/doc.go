// Package botads is a thin client for the Botads Client API and the helpers needed to
// accept Botads webhooks.
//
// Outbound, a Client issues short codes:
//
//	client, err := botads.NewClient("https://api.botads.app", token)
//	code, err := client.CreateCode(ctx, botID, userTgID)
//
// Inbound, a webhook body is verified against the X-Signature header before it is parsed:
//
//	payload, err := botads.VerifyAndParse(body, r.Header.Get(botads.SignatureHeader), secret)
//
// The client never retries. Failures are reported as *ApiError when the upstream answered
// and as *TransportError when it could not be reached.
package botads
