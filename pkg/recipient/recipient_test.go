package recipient

import "testing"

// TestNormalizeRecipients は宛先一覧の正規化を検証する。
func TestNormalizeRecipients(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "空白を除去してソートする", in: " b@x.com, a@x.com ,a@x.com", want: "a@x.com,a@x.com,b@x.com"},
		{name: "空の要素は捨てる", in: "a@x.com,, ,b@x.com,", want: "a@x.com,b@x.com"},
		{name: "単一の宛先", in: "  iago@zulip.com  ", want: "iago@zulip.com"},
		{name: "空文字列", in: "", want: ""},
		{name: "カンマのみ", in: ",,,", want: ""},
		{name: "補助面の文字は全角記号より前に並ぶ", in: "\uff01@x.com,\U0001F600@x.com", want: "\U0001F600@x.com,\uff01@x.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeRecipients(tt.in); got != tt.want {
				t.Errorf("NormalizeRecipients(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestSameRecipient は宛先の一致判定を検証する。
func TestSameRecipient(t *testing.T) {
	t.Parallel()

	streamA := &Message{Type: TypeStream, Stream: "Social", Subject: "Lunch"}
	streamB := &Message{Type: TypeStream, Stream: "social", Subject: "lunch"}
	streamOtherTopic := &Message{Type: TypeStream, Stream: "social", Subject: "dinner"}
	privateA := &Message{Type: TypePrivate, ReplyTo: "a@x.com,b@x.com"}
	privateB := &Message{Type: TypePrivate, ReplyTo: "a@x.com,b@x.com"}
	privateC := &Message{Type: TypePrivate, ReplyTo: "A@x.com,b@x.com"}

	tests := []struct {
		name      string
		a, b      *Message
		same      bool
		sameMajor bool
	}{
		{name: "ストリームとトピックは大文字小文字を区別しない", a: streamA, b: streamB, same: true, sameMajor: true},
		{name: "トピックが異なるストリームメッセージ", a: streamA, b: streamOtherTopic, same: false, sameMajor: true},
		{name: "同じ返信先のプライベートメッセージ", a: privateA, b: privateB, same: true, sameMajor: true},
		{name: "返信先は大文字小文字を区別する", a: privateA, b: privateC, same: false, sameMajor: false},
		{name: "種類が異なる", a: streamA, b: privateA, same: false, sameMajor: false},
		{name: "片方がnil", a: streamA, b: nil, same: false, sameMajor: false},
		{name: "未知の種類", a: &Message{Type: "huddle"}, b: &Message{Type: "huddle"}, same: false, sameMajor: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SameRecipient(tt.a, tt.b); got != tt.same {
				t.Errorf("SameRecipient() = %v, want %v", got, tt.same)
			}
			if got := SameMajorRecipient(tt.a, tt.b); got != tt.sameMajor {
				t.Errorf("SameMajorRecipient() = %v, want %v", got, tt.sameMajor)
			}
		})
	}
}

// TestSameStreamAndSubject はストリームとトピックの比較を検証する。
func TestSameStreamAndSubject(t *testing.T) {
	t.Parallel()

	a := &Message{Stream: "Denmark", Subject: "Copenhagen"}
	b := &Message{Stream: "DENMARK", Subject: "copenhagen"}
	if !SameStreamAndSubject(a, b) {
		t.Error("大文字小文字のみ異なる場合は一致とみなすべき")
	}
	if SameStreamAndSubject(a, nil) {
		t.Error("nilとの比較は不一致とみなすべき")
	}
}

// TestSameSender は送信者の比較を検証する。
func TestSameSender(t *testing.T) {
	t.Parallel()

	a := &Message{SenderEmail: "hamlet@zulip.com"}
	b := &Message{SenderEmail: "hamlet@zulip.com"}
	c := &Message{SenderEmail: "othello@zulip.com"}

	if !SameSender(a, b) {
		t.Error("同じ送信者は一致とみなすべき")
	}
	if SameSender(a, c) {
		t.Error("異なる送信者は不一致とみなすべき")
	}
	if SameSender(nil, b) {
		t.Error("nilとの比較は不一致とみなすべき")
	}
}
