package email

import (
	"fmt"
	"mime"
	"net/smtp"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service handles email sending via SMTP
type Service struct {
	host     string
	port     string
	from     string
	sendMail sendFunc
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host:     host,
		port:     port,
		from:     from,
		sendMail: smtp.SendMail,
	}
}

// SendReceipt mails the receipt of a placed order.
func (s *Service) SendReceipt(to string, r Receipt) error {
	shortID := r.OrderID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	body, err := BuildReceiptBody(r)
	if err != nil {
		return fmt.Errorf("failed to render receipt: %w", err)
	}
	return s.send(to, fmt.Sprintf("Recibo de su pedido %s", shortID), body)
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, mime.QEncoding.Encode("UTF-8", subject), body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return s.sendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
