package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"sort"
	"strings"
	"time"

	"mailspot/config"
	"mailspot/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// EmailType 邮件类型
type EmailType string

const (
	// TypePurchaseConfirmation 广告位购买成功
	TypePurchaseConfirmation EmailType = "purchase_confirmation"
	// TypeWelcome 欢迎邮件（含占位账号认领链接）
	TypeWelcome EmailType = "welcome"
)

var subjects = map[EmailType]string{
	TypePurchaseConfirmation: "Your postcard ad spot is confirmed",
	TypeWelcome:              "Welcome to Mailspot",
}

// Service 邮件服务
type Service struct {
	config    config.EmailConfig
	templates *template.Template
	logger    *logger.Logger
}

// NewService 创建邮件服务
func NewService(cfg config.EmailConfig, logger *logger.Logger) (*Service, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("解析邮件模板失败: %w", err)
	}
	return &Service{config: cfg, templates: tmpl, logger: logger}, nil
}

// Render 渲染指定类型的邮件，返回主题和正文
func (s *Service) Render(emailType EmailType, data map[string]interface{}) (string, string, error) {
	subject, ok := subjects[emailType]
	if !ok {
		return "", "", fmt.Errorf("未知的邮件类型: %s", emailType)
	}

	buf := new(bytes.Buffer)
	if err := s.templates.ExecuteTemplate(buf, string(emailType)+".html", data); err != nil {
		return "", "", fmt.Errorf("执行邮件模板失败: %w", err)
	}
	return subject, buf.String(), nil
}

// Send 渲染并发送邮件
func (s *Service) Send(ctx context.Context, emailType EmailType, to string, data map[string]interface{}) error {
	subject, body, err := s.Render(emailType, data)
	if err != nil {
		return err
	}
	if err := s.send(ctx, to, subject, body); err != nil {
		return err
	}
	s.logger.Info("邮件已发送", "type", string(emailType), "to", to)
	return nil
}

// buildMessage 组装MIME邮件内容
func (s *Service) buildMessage(to, subject, body string) []byte {
	header := map[string]string{
		"From":         fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From),
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
		"Date":         time.Now().Format(time.RFC1123Z),
	}
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k + ": " + header[k] + "\r\n")
	}
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return []byte(sb.String())
}

// send 通过隐式TLS连接SMTP服务器发送
func (s *Service) send(ctx context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: 10 * time.Second},
		Config:    &tls.Config{ServerName: s.config.Host},
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("创建TLS连接失败: %w", err)
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("创建SMTP客户端失败: %w", err)
	}
	defer client.Close()

	if s.config.Username != "" {
		auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP认证失败: %w", err)
		}
	}

	if err := client.Mail(s.config.From); err != nil {
		return fmt.Errorf("设置发件人失败: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("设置收件人失败: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("准备发送数据失败: %w", err)
	}
	if _, err := w.Write(s.buildMessage(to, subject, body)); err != nil {
		return fmt.Errorf("写入邮件内容失败: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("关闭数据写入失败: %w", err)
	}
	return client.Quit()
}
