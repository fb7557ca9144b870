package errors

var (
	ErrUnauthorized        = Unauthorized("authentication required")
	ErrNotParticipant      = Forbidden("not a participant of this conversation")
	ErrConversationMissing = NotFound("conversation not found")
	ErrUserNotFound        = NotFound("user not found")
	ErrNicknameTaken       = AlreadyExists("nickname is already taken")
	ErrInvalidCredentials  = Unauthorized("invalid nickname or password")
	ErrSelfBlock           = InvalidArg("cannot block yourself")
	ErrBlockedConversation = New(CodeBlocked, "messaging is blocked between these users")
	ErrEmptyMessage        = InvalidArg("message must carry text or an image")
)
