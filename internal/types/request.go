package types

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	BusinessName string `json:"business_name" binding:"required"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ClaimRequest 占位账号认领请求
type ClaimRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CheckoutRequest 下单请求
type CheckoutRequest struct {
	MailingID string   `json:"mailing_id" binding:"required"`
	SpotIDs   []string `json:"spot_ids" binding:"required"`
	AdCopyURL string   `json:"ad_copy_url"`
	OfferText string   `json:"offer_text"`
}

// CustomCheckoutRequest 管理员议价下单请求
type CustomCheckoutRequest struct {
	CheckoutRequest
	Email        string `json:"email" binding:"required"`
	BusinessName string `json:"business_name"`
	AmountCents  int64  `json:"amount_cents" binding:"required"`
}

// AssignSpotRequest 管理员指派广告位请求
type AssignSpotRequest struct {
	SpotID       string `json:"spot_id" binding:"required"`
	Email        string `json:"email" binding:"required"`
	BusinessName string `json:"business_name"`
	AdCopyURL    string `json:"ad_copy_url"`
	OfferText    string `json:"offer_text"`
}

// UpdateOfferRequest 修改落地页优惠文案
type UpdateOfferRequest struct {
	OfferText string `json:"offer_text" binding:"required"`
}

// MailingRequest 创建或修改期刊请求，日期格式 2006-01-02
type MailingRequest struct {
	Title          string   `json:"title" binding:"required"`
	ZipCodes       []string `json:"zip_codes" binding:"required"`
	ScheduledDate  string   `json:"scheduled_date" binding:"required"`
	SpotPriceCents int64    `json:"spot_price_cents" binding:"required"`
	Status         string   `json:"status"`
}

// BlogPostRequest 创建或修改博客文章请求
type BlogPostRequest struct {
	Slug        string `json:"slug"`
	Title       string `json:"title" binding:"required"`
	Content     string `json:"content" binding:"required"`
	Author      string `json:"author"`
	IsPublished bool   `json:"is_published"`
}
