package email

import (
	"strings"
	"testing"
)

func TestServiceIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name:     "empty config",
			config:   Config{},
			expected: false,
		},
		{
			name: "missing host",
			config: Config{
				Port: "587",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing port",
			config: Config{
				Host: "smtp.example.com",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing from",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
			},
			expected: false,
		},
		{
			name: "fully configured",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
				From: "test@example.com",
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.config)
			if svc.IsConfigured() != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", svc.IsConfigured(), tt.expected)
			}
		})
	}
}

func TestRenderInvitationTemplate(t *testing.T) {
	data := InvitationData{
		AppName:         "Inkwell",
		PublicationName: "Field Notes",
		Role:            "editor",
		InvitationURL:   "https://example.com/invitations/accept?token=abc123",
	}

	html, err := renderTemplate(invitationEmailTemplate, data)
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	if !strings.Contains(html, "Field Notes") {
		t.Error("template should contain publication name")
	}
	if !strings.Contains(html, "editor") {
		t.Error("template should contain the offered role")
	}
	if !strings.Contains(html, "https://example.com/invitations/accept?token=abc123") {
		t.Error("template should contain the accept link")
	}
}

func TestRenderInvitationTemplateWithoutToken(t *testing.T) {
	data := InvitationData{
		AppName:         "Inkwell",
		PublicationName: "Field Notes",
		Role:            "writer",
	}

	html, err := renderTemplate(invitationEmailTemplate, data)
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	if strings.Contains(html, "Accept Invitation") {
		t.Error("template should not render an accept button without a link")
	}
	if !strings.Contains(html, "Sign in to Inkwell") {
		t.Error("template should fall back to a sign-in prompt")
	}
}

func TestRenderWelcomeTemplate(t *testing.T) {
	data := WelcomeData{
		AppName:  "Inkwell",
		UserName: "Test User",
	}

	html, err := renderTemplate(welcomeEmailTemplate, data)
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	if !strings.Contains(html, "Inkwell") {
		t.Error("template should contain app name")
	}
	if !strings.Contains(html, "Test User") {
		t.Error("template should contain user name")
	}
}
