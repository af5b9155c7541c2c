package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestSerializeKnownBytes(t *testing.T) {
	req := &GroupRecallRequest{
		Type:     1,
		GroupUin: 300,
		Info:     &GroupRecallInfo{Sequence: 5},
	}

	want := []byte{
		0x08, 0x01, // 1: 1
		0x10, 0xac, 0x02, // 2: 300
		0x1a, 0x02, 0x08, 0x05, // 3: {1: 5}
	}
	assert.Equal(t, want, Serialize(req))
}

func TestZeroValuesOmitted(t *testing.T) {
	assert.Empty(t, Serialize(&C2CRecallSettings{}))
	assert.Empty(t, Serialize(&NTLoginForward{}))
	assert.Empty(t, Serialize(&Empty{}))
}

func TestNestedEnvelope(t *testing.T) {
	inner := &NTLoginAndroidCommon{
		Common: &NTLoginCommon{
			Head: &NTLoginHead{
				UserInfo:   &NTLoginUserInfo{Account: "10001"},
				ClientInfo: &NTLoginClientInfo{Platform: PlatformAndroid, Guid: []byte{1, 2, 3}},
				Cookie:     &NTLoginCookie{Content: "cookie"},
			},
			Body: []byte{0x0a, 0x00},
		},
		Ext: &NTLoginAndroidExt{Uin: "10001"},
	}

	got, err := Deserialize[NTLoginAndroidCommon](Serialize(inner))
	require.NoError(t, err)

	require.NotNil(t, got.Common)
	require.NotNil(t, got.Common.Head)
	assert.Equal(t, "10001", got.Common.Head.UserInfo.Account)
	assert.Equal(t, PlatformAndroid, got.Common.Head.ClientInfo.Platform)
	assert.Equal(t, []byte{1, 2, 3}, got.Common.Head.ClientInfo.Guid)
	assert.Equal(t, "cookie", got.Common.Head.Cookie.Content)
	assert.Equal(t, []byte{0x0a, 0x00}, got.Common.Body)
	assert.Equal(t, "10001", got.Ext.Uin)
	assert.Nil(t, got.Common.Head.ErrorInfo)
}

func TestUnknownFieldsSkipped(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 99, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 42)
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, "msg")
	b = protowire.AppendTag(b, 98, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 7)

	got, err := Deserialize[NTLoginCookie](b)
	require.NoError(t, err)
	assert.Equal(t, "msg", got.Content)
}

func TestMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"truncated varint", []byte{0x08, 0x80}},
		{"length past end", []byte{0x0a, 0x05, 0x01}},
		{"bad tag", []byte{0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize[C2CRecallRequest](tt.data)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestNestedFieldWrongType(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 1)

	_, err := Deserialize[MsgPush](b)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRepeatedFields(t *testing.T) {
	recall := &GroupRecall{
		OperatorUid: "u_op",
		Messages: []*RecalledMessage{
			{Sequence: 10, AuthorUid: "u_a"},
			{Sequence: 11, AuthorUid: "u_b"},
		},
		TipInfo: &TipInfo{Tip: "recalled"},
	}
	notify := &NotifyMessageBody{Type: 17, GroupUin: 123456, Recall: recall}

	got, err := Deserialize[NotifyMessageBody](Serialize(notify))
	require.NoError(t, err)
	require.Len(t, got.Recall.Messages, 2)
	assert.Equal(t, uint64(11), got.Recall.Messages[1].Sequence)
	assert.Equal(t, "u_b", got.Recall.Messages[1].AuthorUid)
	assert.Equal(t, "recalled", got.Recall.TipInfo.Tip)
	assert.Equal(t, int64(123456), got.GroupUin)
}

func TestRichTextElems(t *testing.T) {
	body := &MessageBody{RichText: &RichText{Elems: []*Elem{
		{Text: &TextElem{Str: "hello "}},
		{Text: &TextElem{Str: "world"}},
	}}}

	got, err := Deserialize[MessageBody](Serialize(body))
	require.NoError(t, err)
	require.Len(t, got.RichText.Elems, 2)
	assert.Equal(t, "world", got.RichText.Elems[1].Text.Str)
	assert.Equal(t, uint32(1), got.RichText.Elems[0].Kind)
}

func TestReserveFieldsSecInfo(t *testing.T) {
	reserve := &ReserveFields{
		TraceParent: "00-abc-def-01",
		Uid:         "u_self",
		SecInfo:     &SecInfo{Sign: []byte{1}, Token: []byte{2}, Extra: []byte{3}},
	}

	got, err := Deserialize[ReserveFields](Serialize(reserve))
	require.NoError(t, err)
	assert.Equal(t, reserve, got)
}
