// Package push 移动端推送通知发送器.
// 推送只做尽力而为, 失败由调用方记日志, 不影响业务流程.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Message 一条推送
type Message struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Sender 推送发送接口
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NoopSender 空实现, 未配置推送时使用
type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, msg Message) error {
	return nil
}

// =============================================================================
// HTTPSender — 推送网关HTTP客户端
// 提供token管理和消息发送, 网关凭据走配置
// =============================================================================

// HTTPSender 推送网关客户端
type HTTPSender struct {
	baseURL     string
	appKey      string       // 应用ID
	appSecret   string       // 应用密钥
	tokenCache  string       // 缓存的access_token
	tokenExpire time.Time    // token过期时间
	mu          sync.RWMutex // 保护token缓存的读写锁
	httpClient  *http.Client // HTTP客户端
}

// NewHTTPSender 创建推送网关客户端实例
func NewHTTPSender(baseURL, appKey, appSecret string) *HTTPSender {
	return &HTTPSender{
		baseURL:   baseURL,
		appKey:    appKey,
		appSecret: appSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// getAccessToken 获取网关访问令牌
// 使用双重检查锁定模式缓存token, 提前60秒刷新避免过期
func (s *HTTPSender) getAccessToken(ctx context.Context) (string, error) {
	// 先尝试从缓存获取（读锁）
	s.mu.RLock()
	if s.tokenCache != "" && time.Now().Before(s.tokenExpire) {
		token := s.tokenCache
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	// 缓存失效, 请求新token（写锁）
	s.mu.Lock()
	defer s.mu.Unlock()

	// 双重检查：其他goroutine可能已经刷新了token
	if s.tokenCache != "" && time.Now().Before(s.tokenExpire) {
		return s.tokenCache, nil
	}

	reqBody := map[string]string{
		"app_key":    s.appKey,
		"app_secret": s.appSecret,
	}
	bodyBytes, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, "POST",
		s.baseURL+"/v1/auth/token",
		bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("创建token请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求推送网关token失败: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Code        int    `json:"code"`
		Msg         string `json:"msg"`
		AccessToken string `json:"access_token"`
		Expire      int    `json:"expire"` // 过期时间（秒）
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("解析token响应失败: %w", err)
	}

	if result.Code != 0 {
		return "", fmt.Errorf("推送网关token错误[%d]: %s", result.Code, result.Msg)
	}

	// 缓存token, 提前60秒过期以保证安全
	s.tokenCache = result.AccessToken
	s.tokenExpire = time.Now().Add(time.Duration(result.Expire-60) * time.Second)

	return result.AccessToken, nil
}

// Send 发送一条推送
func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	if msg.Token == "" {
		return nil
	}

	token, err := s.getAccessToken(ctx)
	if err != nil {
		return fmt.Errorf("获取访问令牌失败: %w", err)
	}

	bodyBytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化推送消息失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		s.baseURL+"/v1/messages/send",
		bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("创建推送请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("发送推送失败: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("解析推送响应失败: %w", err)
	}
	if result.Code != 0 {
		return fmt.Errorf("推送网关错误[%d]: %s", result.Code, result.Msg)
	}
	return nil
}
