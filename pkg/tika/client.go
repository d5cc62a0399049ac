// Package tika 提供了一个与 Apache Tika 服务器交互的客户端。
package tika

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"board-ai-go/internal/config"

	"golang.org/x/net/html"
)

// StatusError 表示 Tika 返回了非 200 状态码。
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Tika 返回错误 [%d]: %s", e.StatusCode, e.Body)
}

// Rejected 报告 Tika 是否因文件本身而拒绝请求 (4xx)。
func (e *StatusError) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// Client 是 Tika 服务器的客户端。
type Client struct {
	serverURL  string
	httpClient *http.Client
}

// NewClient 创建一个新的 Tika 客户端实例。
func NewClient(cfg config.TikaConfig) *Client {
	return &Client{serverURL: strings.TrimRight(cfg.ServerURL, "/"), httpClient: http.DefaultClient}
}

// ExtractText 自动根据文件后缀推断 MIME 类型，并调用 Tika 提取纯文本。
func (c *Client) ExtractText(ctx context.Context, fileReader io.Reader, fileName string) (string, error) {
	body, err := c.put(ctx, fileReader, detectMimeType(fileName), "text/plain")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ExtractPages 请求 Tika 的 XHTML 输出，并按 <div class="page"> 拆分为逐页文本。
// 没有分页标记的文档作为单页返回。
func (c *Client) ExtractPages(ctx context.Context, fileReader io.Reader, fileName string) ([]string, error) {
	body, err := c.put(ctx, fileReader, detectMimeType(fileName), "text/html")
	if err != nil {
		return nil, err
	}
	return SplitPages(bytes.NewReader(body)), nil
}

func (c *Client) put(ctx context.Context, fileReader io.Reader, contentType, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.serverURL+"/tika", fileReader)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("调用 Tika 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		return nil, fmt.Errorf("读取 Tika 响应失败: %w", err)
	}
	return buf.Bytes(), nil
}

// SplitPages 从 Tika 的 XHTML 中提取逐页文本。
// 解析中途出错时，已收集的页面照常返回，未完成的页面记为空字符串。
func SplitPages(r io.Reader) []string {
	z := html.NewTokenizer(r)
	var (
		pages    []string
		current  strings.Builder
		inPage   bool
		divDepth int
		body     strings.Builder // 无分页标记时使用
		inBody   bool
	)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if inPage {
				// 截断的页面不可信，按空页处理
				pages = append(pages, "")
			}
			if len(pages) == 0 {
				text := strings.TrimSpace(body.String())
				if text == "" {
					return []string{}
				}
				return []string{text}
			}
			return pages
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			if tag == "body" {
				inBody = true
			}
			if tag == "div" {
				if inPage {
					divDepth++
				} else if hasAttr && isPageDiv(z) {
					inPage = true
					divDepth = 0
					current.Reset()
				}
			}
			if tag == "br" {
				writeBreak(inPage, &current, &body)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "div":
				if inPage {
					if divDepth == 0 {
						pages = append(pages, strings.TrimSpace(current.String()))
						inPage = false
						continue
					}
					divDepth--
				}
				writeBreak(inPage, &current, &body)
			case "p", "h1", "h2", "h3", "h4", "h5", "h6", "li", "tr":
				writeBreak(inPage, &current, &body)
			case "body":
				inBody = false
			}
		case html.TextToken:
			text := string(z.Text())
			if inPage {
				current.WriteString(text)
			} else if inBody {
				body.WriteString(text)
			}
		}
	}
}

func isPageDiv(z *html.Tokenizer) bool {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "class" {
			for _, cls := range strings.Fields(string(val)) {
				if cls == "page" {
					return true
				}
			}
		}
		if !more {
			return false
		}
	}
}

func writeBreak(inPage bool, current, body *strings.Builder) {
	if inPage {
		current.WriteByte('\n')
		return
	}
	body.WriteByte('\n')
}

// detectMimeType 根据文件扩展名判断 Content-Type
func detectMimeType(fileName string) string {
	ext := filepath.Ext(fileName)
	if ext == "" {
		return "application/octet-stream"
	}
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		// fallback 默认
		return "application/octet-stream"
	}
	return mimeType
}
