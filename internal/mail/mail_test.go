package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"
	"time"
)

func TestSendComposesMultipartMessage(t *testing.T) {
	s, err := NewSMTP(Config{Host: "smtp.example.com", From: "erp@example.com", Username: "erp", Password: "secret"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	var gotAddr string
	var gotTo []string
	var raw []byte
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		if a == nil || from != "erp@example.com" {
			t.Errorf("unexpected auth/from %v %s", a, from)
		}
		gotAddr, gotTo, raw = addr, to, msg
		return nil
	}
	s.now = func() time.Time { return time.Date(2025, 4, 1, 6, 0, 0, 0, time.UTC) }

	zip := bytes.Repeat([]byte("PK"), 100)
	err = s.Send(context.Background(), Message{
		To:          []string{"accounts@example.com"},
		Subject:     "Sage Monthly Export - Acme 202503",
		Body:        "Attached.",
		Attachments: []Attachment{{Name: "SAGE_Acme_202503.zip", ContentType: "application/zip", Data: zip}},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAddr != "smtp.example.com:587" || len(gotTo) != 1 {
		t.Fatalf("unexpected envelope %s %v", gotAddr, gotTo)
	}

	m, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parse message: %v", err)
	}
	dec := new(mime.WordDecoder)
	subject, _ := dec.DecodeHeader(m.Header.Get("Subject"))
	if subject != "Sage Monthly Export - Acme 202503" {
		t.Fatalf("unexpected subject %q", subject)
	}
	_, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	if err != nil {
		t.Fatalf("content type: %v", err)
	}
	mr := multipart.NewReader(m.Body, params["boundary"])
	body, err := mr.NextPart()
	if err != nil {
		t.Fatalf("body part: %v", err)
	}
	text, _ := io.ReadAll(body)
	if string(text) != "Attached." {
		t.Fatalf("unexpected body %q", text)
	}
	att, err := mr.NextPart()
	if err != nil {
		t.Fatalf("attachment part: %v", err)
	}
	if att.FileName() != "SAGE_Acme_202503.zip" {
		t.Fatalf("unexpected attachment name %q", att.FileName())
	}
	encoded, _ := io.ReadAll(att)
	if !strings.HasPrefix(string(encoded), "UEtQS1BL") {
		t.Fatalf("expected base64 payload, got %q", encoded[:16])
	}
}

func TestSendErrors(t *testing.T) {
	if _, err := NewSMTP(Config{From: "x@example.com"}); err == nil {
		t.Fatalf("expected missing host error")
	}
	s, _ := NewSMTP(Config{Host: "localhost", Port: 25, From: "x@example.com"})
	if err := s.Send(context.Background(), Message{}); err == nil {
		t.Fatalf("expected no recipients error")
	}
	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("relay down") }
	err := s.Send(context.Background(), Message{To: []string{"a@example.com"}})
	if err == nil || !strings.Contains(err.Error(), "relay down") {
		t.Fatalf("expected relay error, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, Message{To: []string{"a@example.com"}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}
