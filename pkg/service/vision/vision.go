/*
 * @Description: 视觉大模型分类客户端 (OpenAI 兼容的 chat/completions 接口)
 * @Author: photox
 * @Date: 2025-10-07 09:31:26
 * @LastEditTime: 2025-10-21 10:02:48
 * @LastEditors: photox
 */
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/disintegration/imaging"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	_ "golang.org/x/image/webp"
	"golang.org/x/time/rate"

	"github.com/photox-team/photox-app/pkg/config"
	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/metrics"
)

// Reason 分类降级的原因
type Reason string

const (
	ReasonRequestFailed   Reason = "request_failed"
	ReasonBadStatus       Reason = "bad_status"
	ReasonParseFailed     Reason = "parse_failed"
	ReasonImageUnreadable Reason = "image_unreadable"
	ReasonCircuitOpen     Reason = "circuit_open"
)

const (
	maxTimeout                 = 30 * time.Second
	jpegQuality                = 85
	defaultMaxDimension        = 1024
	breakerName                = "vision-api"
	breakerConsecutiveFailures = 5
)

// Result 分类结果。Reason 非空时表示已降级为默认值
type Result struct {
	Category constant.Category
	TagIDs   []uint
	Model    string
	Reason   Reason
}

// Degraded 是否使用了默认结果
func (r Result) Degraded() bool {
	return r.Reason != ""
}

func fallback(modelName string, reason Reason) Result {
	return Result{
		Category: constant.CategoryOther,
		TagIDs:   []uint{constant.SentinelTagID},
		Model:    modelName,
		Reason:   reason,
	}
}

// Classifier 对本地图片做分类，永远不会返回错误，失败时给出默认结果
type Classifier interface {
	Classify(ctx context.Context, imagePath string, tags []*model.Tag) Result
}

type Options struct {
	Endpoint      string
	APIKey        string
	Model         string
	Timeout       time.Duration
	MaxDimension  int
	RatePerSecond float64
	HTTPClient    *http.Client
}

// OptionsFromConfig 从配置读取视觉模型参数
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Endpoint:      cfg.GetString(config.KeyVisionEndpoint),
		APIKey:        cfg.GetString(config.KeyVisionAPIKey),
		Model:         cfg.GetString(config.KeyVisionModel),
		Timeout:       time.Duration(cfg.GetInt(config.KeyVisionTimeout)) * time.Second,
		MaxDimension:  cfg.GetInt(config.KeyVisionMaxDim),
		RatePerSecond: cfg.GetFloat64(config.KeyVisionRate),
	}
}

type Client struct {
	opts    Options
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 || opts.Timeout > maxTimeout {
		opts.Timeout = maxTimeout
	}
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = defaultMaxDimension
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[视觉分类] 熔断器状态变化: %s -> %s", from, to)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Client{
		opts:    opts,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		cb:      cb,
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Classify 预处理图片、调用模型并校验结果
func (c *Client) Classify(ctx context.Context, imagePath string, tags []*model.Tag) Result {
	start := time.Now()
	result := c.classify(ctx, imagePath, tags)
	metrics.RecordClassification(string(result.Reason), time.Since(start))
	if result.Degraded() {
		log.Printf("[视觉分类] ⚠️ 分类降级为默认结果: path=%s, reason=%s", imagePath, result.Reason)
	}
	return result
}

func (c *Client) classify(ctx context.Context, imagePath string, tags []*model.Tag) Result {
	dataURL, err := c.encodeImage(imagePath)
	if err != nil {
		log.Printf("[视觉分类] 图片处理失败: %v", err)
		return fallback(c.opts.Model, ReasonImageUnreadable)
	}

	payload, err := json.Marshal(c.buildRequest(dataURL, tags))
	if err != nil {
		return fallback(c.opts.Model, ReasonRequestFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.post(ctx, payload)
	})
	if err != nil {
		var statusErr *statusError
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return fallback(c.opts.Model, ReasonCircuitOpen)
		case errors.As(err, &statusErr):
			log.Printf("[视觉分类] API错误: %d, %s", statusErr.code, statusErr.body)
			return fallback(c.opts.Model, ReasonBadStatus)
		default:
			log.Printf("[视觉分类] 请求异常: %v", err)
			return fallback(c.opts.Model, ReasonRequestFailed)
		}
	}

	category, tagIDs, err := parseResponse(body, tags)
	if err != nil {
		log.Printf("[视觉分类] 响应解析错误: %v", err)
		return fallback(c.opts.Model, ReasonParseFailed)
	}
	return Result{Category: category, TagIDs: tagIDs, Model: c.opts.Model}
}

// Describer 为图片生成一段自然语言描述
type Describer interface {
	Describe(ctx context.Context, imagePath string) (string, error)
}

const describePrompt = "你是一位有十年以上经验的资深摄影师。直接输出描述文本，不要包含任何格式或标记。" +
	"如果是风景照片且能识别地点，把地点放在最前面。" +
	"从构图、光影、色彩、景深、拍摄角度等方面简要分析这张照片，并给出一条改进建议。"

// Describe 与分类共用限流器和熔断器，失败时返回错误而不是默认值
func (c *Client) Describe(ctx context.Context, imagePath string) (string, error) {
	dataURL, err := c.encodeImage(imagePath)
	if err != nil {
		return "", fmt.Errorf("图片处理失败: %w", err)
	}
	payload, err := json.Marshal(chatRequest{
		Model: c.opts.Model,
		Messages: []chatMessage{
			{Role: "system", Content: describePrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: "请描述这张图片"},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			}},
		},
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.post(ctx, payload)
	})
	if err != nil {
		log.Printf("[视觉描述] 请求失败: %v", err)
		return "", fmt.Errorf("调用视觉模型失败: %w", err)
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("解析响应体失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("响应中没有 choices")
	}
	description := stripFences(resp.Choices[0].Message.Content)
	if description == "" {
		return "", errors.New("模型返回了空描述")
	}
	return description, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("视觉模型返回状态码 %d", e.code)
}

func (c *Client) post(ctx context.Context, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("等待限流器失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("构建请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &statusError{code: resp.StatusCode, body: snippet}
	}
	return body, nil
}

// encodeImage 缩放到最长边不超过 MaxDimension，并重新编码为 JPEG data URL
func (c *Client) encodeImage(path string) (string, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", err
	}
	b := img.Bounds()
	if b.Dx() > c.opts.MaxDimension || b.Dy() > c.opts.MaxDimension {
		img = imaging.Fit(img, c.opts.MaxDimension, c.opts.MaxDimension, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", fmt.Errorf("编码 JPEG 失败: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

type chatRequest struct {
	Model          string         `json:"model"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Messages       []chatMessage  `json:"messages"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) buildRequest(dataURL string, tags []*model.Tag) chatRequest {
	return chatRequest{
		Model:          c.opts.Model,
		ResponseFormat: &responseFormat{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: BuildPrompt(tags)},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: "识别图片内容并返回指定的JSON格式"},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			}},
		},
	}
}

// BuildPrompt 生成系统提示词，内嵌分类列表和完整的标签注册表
func BuildPrompt(tags []*model.Tag) string {
	categories := constant.AllCategories()

	var sb strings.Builder
	sb.WriteString("你是一个专业的图像内容分析AI。请根据提供的图像，完成以下任务：\n")
	fmt.Fprintf(&sb, "1. 从以下分类中选择最合适的一个分类ID（必须是0-%d之间的整数），如果不是非常确定分入其他：\n", len(categories)-1)
	sb.WriteString("{\n")
	for i, cat := range categories {
		fmt.Fprintf(&sb, "  \"%d\": \"%s\"", int(cat), cat.Name())
		if i < len(categories)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n")
	sb.WriteString("2. 从以下标签中选择4-6个最相关的标签（必须返回标签ID，即数字）,要求只输出最准确最确定的标签，")
	sb.WriteString("并且如果不是非常确定可以减少输出的标签，需要尽量避免错误：\n")
	for _, tag := range tags {
		fmt.Fprintf(&sb, "%d: %s\n", tag.ID, tag.Name)
	}
	sb.WriteString("返回格式必须是纯JSON：{\"category_id\": 分类ID, \"tag_ids\": [标签ID1, 标签ID2, ...]}")
	sb.WriteString("注意：只能返回数字ID，不要返回标签名称！")
	return sb.String()
}

// stripFences 去掉模型可能包裹的 Markdown 代码块
// 开头围栏后的语言标记（json、JSON 等）一直到第一个换行都会被丢弃
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if len(content) < 6 || !strings.HasPrefix(content, "```") || !strings.HasSuffix(content, "```") {
		return content
	}
	body := content[3 : len(content)-3]
	first, rest, found := strings.Cut(body, "\n")
	if found && !strings.ContainsAny(first, "{[") {
		body = rest
	} else {
		body = strings.TrimLeftFunc(body, func(r rune) bool {
			return unicode.IsLetter(r) || r == '-' || r == '_'
		})
	}
	return strings.TrimSpace(body)
}

// parseResponse 解析模型输出，丢弃未知的标签，空结果补哨兵标签
func parseResponse(body []byte, tags []*model.Tag) (constant.Category, []uint, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, nil, fmt.Errorf("解析响应体失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, nil, errors.New("响应中没有 choices")
	}
	content := stripFences(resp.Choices[0].Message.Content)

	var out struct {
		CategoryID any   `json:"category_id"`
		TagIDs     []any `json:"tag_ids"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return 0, nil, fmt.Errorf("解析模型输出失败: %w", err)
	}

	category := constant.CategoryOther
	if out.CategoryID != nil {
		id, ok := toInt(out.CategoryID)
		if !ok {
			return 0, nil, fmt.Errorf("无效的分类ID: %v", out.CategoryID)
		}
		if c := constant.Category(id); c.IsValid() {
			category = c
		} else {
			log.Printf("[视觉分类] 无效分类ID: %d, 使用默认分类", id)
		}
	}

	known := make(map[uint]struct{}, len(tags))
	for _, t := range tags {
		known[t.ID] = struct{}{}
	}
	seen := make(map[uint]struct{}, len(out.TagIDs))
	tagIDs := make([]uint, 0, len(out.TagIDs))
	for _, raw := range out.TagIDs {
		id, ok := toInt(raw)
		if !ok || id < 0 {
			log.Printf("[视觉分类] 忽略非数字标签ID: %v", raw)
			continue
		}
		uid := uint(id)
		if _, ok := known[uid]; !ok {
			log.Printf("[视觉分类] 忽略无效标签ID: %d", id)
			continue
		}
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		tagIDs = append(tagIDs, uid)
	}
	if len(tagIDs) == 0 {
		tagIDs = append(tagIDs, constant.SentinelTagID)
	}
	return category, tagIDs, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}
