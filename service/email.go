package service

import (
	"context"
	"fmt"
	"html"
	"time"

	"bugie/config"
	"bugie/models"

	"gopkg.in/gomail.v2"
)

// EmailService 邮件服务
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// NotifyDeletionScheduled 发送注销已受理邮件，附带恢复期限
func (s *EmailService) NotifyDeletionScheduled(_ context.Context, account models.Account, deadline time.Time) error {
	if !s.cfg.Enabled {
		return nil
	}
	if account.Email == "" {
		return fmt.Errorf("账号 %s 没有邮箱地址", account.ID)
	}
	subject := "【Bugie】账号注销申请已受理"
	body := s.generateDeletionEmailBody(account.DisplayName, deadline)
	return s.sendEmail(account.Email, subject, body)
}

// generateDeletionEmailBody 生成注销通知邮件内容
func (s *EmailService) generateDeletionEmailBody(displayName string, deadline time.Time) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; }
        .header { background: #1d4ed8; color: white; padding: 30px; text-align: center; }
        .content { padding: 40px 30px; color: #333; line-height: 1.8; }
        .warning { background: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; border-radius: 4px; color: #856404; }
        .footer { background: #f8f9fa; padding: 20px 30px; text-align: center; color: #6c757d; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>Bugie</h1></div>
        <div class="content">
            <p><strong>%s</strong>，您好！</p>
            <p>我们已收到您的账号注销申请，您已退出所有共享账本。</p>
            <div class="warning">
                <p>在 <strong>%s</strong> 之前重新登录即可恢复账号。</p>
                <p>超过期限后账号资料将被永久抹除，且无法恢复。</p>
            </div>
        </div>
        <div class="footer"><p>此邮件由系统自动发送，请勿回复</p></div>
    </div>
</body>
</html>
`, html.EscapeString(displayName), deadline.UTC().Format("2006-01-02 15:04 MST"))
}

// sendEmail 发送邮件
func (s *EmailService) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.Username, s.cfg.From))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}

var _ DeletionNotifier = (*EmailService)(nil)
