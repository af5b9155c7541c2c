package event

import "time"

// FriendRecallEvent: a friend withdrew a private message
type FriendRecallEvent struct {
	FriendUin int64
	FriendUid string
	Sequence  int64
	Tip       string
	Time      time.Time
}

func (FriendRecallEvent) Name() string { return "friend_recall" }

// GroupRecallEvent: a group message was withdrawn, by its author or an admin
type GroupRecallEvent struct {
	GroupUin    int64
	AuthorUin   int64
	AuthorUid   string
	OperatorUin int64
	OperatorUid string
	Sequence    uint64
	Random      uint32
	Tip         string
	Time        time.Time
}

func (GroupRecallEvent) Name() string { return "group_recall" }

type GroupMemberIncreaseEvent struct {
	GroupUin   int64
	MemberUin  int64
	MemberUid  string
	InvitorUid string
	Type       uint32
	Time       time.Time
}

func (GroupMemberIncreaseEvent) Name() string { return "group_member_increase" }

type MessageKind int

const (
	FriendMessage MessageKind = iota
	GroupMessage
	TempMessage
)

func (k MessageKind) String() string {
	switch k {
	case FriendMessage:
		return "friend"
	case GroupMessage:
		return "group"
	case TempMessage:
		return "temp"
	}
	return "unknown"
}

// MessageEvent is an incoming rich-text message. Text joins the plain text
// elements.
type MessageEvent struct {
	Kind      MessageKind
	FromUin   int64
	FromUid   string
	GroupUin  int64
	GroupCard string
	Sequence  uint64
	Random    uint32
	Text      string
	Time      time.Time
}

func (MessageEvent) Name() string { return "message" }

// BotOfflineEvent: the session ended, by kick or connection loss
type BotOfflineEvent struct {
	Reason string
	Title  string
	Tips   string
}

func (BotOfflineEvent) Name() string { return "bot_offline" }

type BotOnlineEvent struct {
	Reason string
}

func (BotOnlineEvent) Name() string { return "bot_online" }

// BotCaptchaEvent asks the user to solve the page at URL and submit the result
type BotCaptchaEvent struct {
	URL string
}

func (BotCaptchaEvent) Name() string { return "bot_captcha" }

// BotSMSEvent asks for the code sent to the account's phone
type BotSMSEvent struct {
	URL   string
	Title string
	Tips  string
}

func (BotSMSEvent) Name() string { return "bot_sms" }

type BotQRCodeEvent struct {
	URL     string
	Image   []byte
	Expires time.Time
}

func (BotQRCodeEvent) Name() string { return "bot_qrcode" }

// BotLoginFailedEvent reports a login attempt rejected with tips
type BotLoginFailedEvent struct {
	Code    int32
	Title   string
	Message string
	JumpURL string
}

func (BotLoginFailedEvent) Name() string { return "bot_login_failed" }

// BotTicketRefreshEvent: new tickets were stored and should be persisted
type BotTicketRefreshEvent struct {
	Uin int64
	Uid string
}

func (BotTicketRefreshEvent) Name() string { return "bot_ticket_refresh" }
