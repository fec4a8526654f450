package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/planhub/planhub_go_server/config"
)

type Service struct {
	cfg *config.EmailConfig
}

func NewService(cfg *config.EmailConfig) *Service {
	return &Service{cfg: cfg}
}

// SendVerificationCode 发送邮箱验证码
func (s *Service) SendVerificationCode(to, code string) error {
	subject := "验证码 - PlanHub 日程管理平台"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">邮箱验证</h2>
        <p>您好，</p>
        <p>您正在注册 PlanHub 日程管理平台账号，验证码为：</p>
        <div style="background-color: #f3f4f6; padding: 15px; text-align: center; font-size: 24px; font-weight: bold; letter-spacing: 5px; margin: 20px 0;">
            %s
        </div>
        <p>验证码有效期为 10 分钟，请尽快完成验证。</p>
        <p>如果您没有进行此操作，请忽略此邮件。</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">此邮件由系统自动发送，请勿回复。</p>
    </div>
</body>
</html>
`, code)

	return s.sendHTML(to, subject, body)
}

// SendEventReminder 发送日程提醒邮件
func (s *Service) SendEventReminder(to, title, startAt string) error {
	subject := fmt.Sprintf("日程提醒：%s - PlanHub", title)
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">日程提醒</h2>
        <p>您好，</p>
        <p>您的日程即将开始：</p>
        <div style="background-color: #f3f4f6; padding: 15px; margin: 20px 0; border-left: 4px solid #2563eb;">
            <p style="font-size: 18px; font-weight: bold; margin: 0 0 5px 0;">%s</p>
            <p style="margin: 0; color: #6b7280;">开始时间：%s</p>
        </div>
        <p>请提前做好准备。</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">此邮件由系统自动发送，请勿回复。</p>
    </div>
</body>
</html>
`, title, startAt)

	return s.sendHTML(to, subject, body)
}

// SendBookingConfirmation 发送预约确认邮件（发给访客）
func (s *Service) SendBookingConfirmation(to, guestName, hostName, startAt string) error {
	subject := "预约确认 - PlanHub"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">预约已确认</h2>
        <p>%s，您好！</p>
        <p>您与 %s 的预约已确认：</p>
        <div style="background-color: #f3f4f6; padding: 15px; margin: 20px 0; border-left: 4px solid #10b981;">
            <p style="margin: 0; font-weight: bold;">时间：%s</p>
        </div>
        <p>如需调整，请联系对方重新安排。</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">此邮件由系统自动发送，请勿回复。</p>
    </div>
</body>
</html>
`, guestName, hostName, startAt)

	return s.sendHTML(to, subject, body)
}

// SendTrialEnding 发送试用期即将结束提醒
func (s *Service) SendTrialEnding(to, username string, daysRemaining int) error {
	subject := "试用期即将结束 - PlanHub"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #f59e0b;">试用期即将结束</h2>
        <p>您好，%s！</p>
        <p>您的免费试用期还剩 <strong>%d</strong> 天。</p>
        <p>订阅后您可以继续使用：</p>
        <ul>
            <li>日历与日程提醒</li>
            <li>任务清单</li>
            <li>预约日程分享</li>
            <li>站内消息</li>
        </ul>
        <p>前往订阅页面选择适合您的套餐吧！</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">此邮件由系统自动发送，请勿回复。</p>
    </div>
</body>
</html>
`, username, daysRemaining)

	return s.sendHTML(to, subject, body)
}

// SendWelcome 发送欢迎邮件
func (s *Service) SendWelcome(to, username string) error {
	subject := "欢迎加入 - PlanHub 日程管理平台"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">欢迎加入！</h2>
        <p>您好，%s！</p>
        <p>感谢您注册 PlanHub 日程管理平台，您的 14 天免费试用已开启。</p>
        <p>现在您可以：</p>
        <ul>
            <li>创建日程并设置提醒</li>
            <li>管理每日任务清单</li>
            <li>分享预约链接给他人</li>
            <li>与好友即时沟通</li>
        </ul>
        <p>开始规划您的时间吧！</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">此邮件由系统自动发送，请勿回复。</p>
    </div>
</body>
</html>
`, username)

	return s.sendHTML(to, subject, body)
}

// sendHTML 发送 HTML 邮件
func (s *Service) sendHTML(to, subject, body string) error {
	headers := make(map[string]string)
	headers["From"] = s.cfg.From
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	var msg strings.Builder
	for k, v := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg.String()))
}
