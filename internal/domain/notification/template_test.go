package notification

import "testing"

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     map[string]any
		want     string
	}{
		{
			name:     "substitutes single placeholder",
			template: "Hi {userName}!",
			vars:     map[string]any{"userName": "Ada"},
			want:     "Hi Ada!",
		},
		{
			name:     "substitutes repeated placeholder",
			template: "{count} and {count} again",
			vars:     map[string]any{"count": 3},
			want:     "3 and 3 again",
		},
		{
			name:     "missing variable stays verbatim",
			template: "You have {count} items",
			vars:     map[string]any{"other": 1},
			want:     "You have {count} items",
		},
		{
			name:     "no placeholders passes through",
			template: "plain text",
			vars:     map[string]any{"count": 3},
			want:     "plain text",
		},
		{
			name:     "numeric values format without decoration",
			template: "total: {total}",
			vars:     map[string]any{"total": 42},
			want:     "total: 42",
		},
		{
			name:     "braces with spaces are not placeholders",
			template: "literal {not a placeholder}",
			vars:     map[string]any{"not": "x"},
			want:     "literal {not a placeholder}",
		},
		{
			name:     "empty template",
			template: "",
			vars:     map[string]any{"count": 1},
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(tt.template, tt.vars)
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTemplate_DefaultChannel(t *testing.T) {
	withChannels := &Template{Channels: []Channel{ChannelEmail, ChannelInApp}}
	if got := withChannels.DefaultChannel(); got != ChannelEmail {
		t.Errorf("DefaultChannel() = %v, want %v", got, ChannelEmail)
	}

	empty := &Template{}
	if got := empty.DefaultChannel(); got != ChannelInApp {
		t.Errorf("DefaultChannel() on empty list = %v, want %v", got, ChannelInApp)
	}
}

func TestParseChannel(t *testing.T) {
	tests := []struct {
		in      string
		want    Channel
		wantErr bool
	}{
		{in: "", want: ""},
		{in: "IN_APP", want: ChannelInApp},
		{in: "email", want: ChannelEmail},
		{in: "Apn", want: ChannelAPN},
		{in: "SMS", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChannel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseChannel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseChannel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("bogus"); err == nil {
		t.Error("ParseStatus(\"bogus\") expected error, got nil")
	}
	got, err := ParseStatus("sent")
	if err != nil {
		t.Fatalf("ParseStatus(\"sent\") unexpected error: %v", err)
	}
	if got != StatusSent {
		t.Errorf("ParseStatus(\"sent\") = %v, want %v", got, StatusSent)
	}
}
