package constants

// 通用错误消息
const (
	// 认证相关错误
	ErrUnauthorized           = "Unauthorized, please sign in"
	ErrInvalidToken           = "Invalid or expired token"
	ErrInsufficientPermission = "Administrator access required"
	ErrInvalidCredentials     = "Invalid email or password"
	ErrEmailExists            = "This email is already registered"

	// 参数相关错误
	ErrInvalidParams  = "Invalid parameters"
	ErrInvalidRequest = "Invalid request format"
	ErrInvalidPayload = "Invalid webhook payload"
	ErrInvalidSig     = "Invalid webhook signature"

	// 业务相关错误
	ErrNotFound           = "Not found"
	ErrForbidden          = "You do not have access to this resource"
	ErrSpotUnavailable    = "One or more selected spots are no longer available"
	ErrMailingHasSales    = "Mailing has reserved or sold spots and cannot be deleted"
	ErrCheckoutInProgress = "A checkout is already in progress, please wait a moment"
	ErrCheckoutFailed     = "Checkout could not be started, please try again"
	ErrUploadFailed       = "Upload failed"

	// 系统错误
	ErrInternalServer       = "Internal server error"
	ErrOperationTooFrequent = "Too many requests, please try again later"
)

// 成功消息
const (
	SuccessLogin    = "Signed in"
	SuccessRegister = "Registered"
	SuccessCreate   = "Created"
	SuccessUpdate   = "Updated"
	SuccessDelete   = "Deleted"
	SuccessGet      = "success"
)
