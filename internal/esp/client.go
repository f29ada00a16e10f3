// 包 esp：EskomSePush 上游客户端，提供“附近区域”与“区域详情”两种查询
package esp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"loadshed-monitor/internal/logger"
	"loadshed-monitor/internal/metrics"
)

const DefaultBaseURL = "https://developer.sepush.co.za/business/2.0"

// StatusError：上游返回非 2xx 状态
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("esp %s: status %d: %s", e.Endpoint, e.Code, e.Body)
}

// DecodeError：响应成功但正文无法解析
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string { return "esp " + e.Endpoint + ": decode: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// 文档注释：上游客户端
// 背景：所有请求携带 Token 头；testView 非空时区域详情追加 test=current|future，用于开发环境模拟当前或未来事件。
// 约束：http.Client 必须带超时，避免单次调用阻塞整轮轮询；为空时使用 10s 超时的默认客户端。
type Client struct {
	base     string
	token    string
	testView string
	hc       *http.Client
}

func NewClient(baseURL, token, testView string, hc *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), token: token, testView: testView, hc: hc}
}

// AreasNearby：按坐标查询附近区域，按上游给出的顺序返回候选
func (c *Client) AreasNearby(ctx context.Context, lat, lon float64) (*AreasNearbyResponse, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	var out AreasNearbyResponse
	if err := c.get(ctx, "areas_nearby", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Area：按区域 ID 查询事件列表与多日分级计划
func (c *Client) Area(ctx context.Context, id string) (*AreaResponse, error) {
	q := url.Values{}
	q.Set("id", id)
	if c.testView != "" {
		q.Set("test", c.testView)
	}
	var out AreaResponse
	if err := c.get(ctx, "area", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	u := c.base + "/" + endpoint + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Token", c.token)
	t0 := time.Now()
	metrics.UpstreamRequestsTotal.WithLabelValues(endpoint).Inc()
	logger.L().Debug("esp_req", "endpoint", endpoint, "query", q.Encode())
	resp, err := c.hc.Do(req)
	if err != nil {
		metrics.UpstreamFailTotal.WithLabelValues(endpoint, "transport").Inc()
		return err
	}
	defer resp.Body.Close()
	dur := time.Since(t0).Milliseconds()
	metrics.UpstreamDurationMs.WithLabelValues(endpoint).Observe(float64(dur))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		metrics.UpstreamFailTotal.WithLabelValues(endpoint, "status").Inc()
		return &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.UpstreamFailTotal.WithLabelValues(endpoint, "decode").Inc()
		return &DecodeError{Endpoint: endpoint, Err: err}
	}
	logger.L().Debug("esp_resp", "endpoint", endpoint, "status", resp.StatusCode, "duration_ms", dur)
	return nil
}

// IsDecode：是否为响应正文解析失败
func IsDecode(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
