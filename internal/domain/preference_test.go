package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabledChannels(t *testing.T) {
	tests := []struct {
		name  string
		prefs []UserPreference
		want  map[Channel]bool
	}{
		{
			name:  "no rows means all enabled",
			prefs: nil,
			want:  nil,
		},
		{
			name: "only enabled channels survive",
			prefs: []UserPreference{
				{UserID: "u1", Channel: ChannelEmail, IsEnabled: true},
				{UserID: "u1", Channel: ChannelPush, IsEnabled: false},
			},
			want: map[Channel]bool{ChannelEmail: true},
		},
		{
			name: "everything disabled yields empty set",
			prefs: []UserPreference{
				{UserID: "u1", Channel: ChannelEmail, IsEnabled: false},
			},
			want: map[Channel]bool{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EnabledChannels(tt.prefs))
		})
	}
}

func TestRecipient_Empty(t *testing.T) {
	tests := []struct {
		name      string
		recipient Recipient
		channel   Channel
		want      bool
	}{
		{"email present", Recipient{Email: "a@b.c"}, ChannelEmail, false},
		{"email missing", Recipient{Phone: "+15550001"}, ChannelEmail, true},
		{"phone present", Recipient{Phone: "+15550001"}, ChannelSMS, false},
		{"phone missing", Recipient{Email: "a@b.c"}, ChannelSMS, true},
		{"tokens present", Recipient{Tokens: []DeviceToken{{Token: "tok-1"}}}, ChannelPush, false},
		{"tokens missing", Recipient{}, ChannelPush, true},
		{"unknown channel always empty", Recipient{Email: "a@b.c"}, Channel("FAX"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.recipient.Empty(tt.channel))
		})
	}
}
