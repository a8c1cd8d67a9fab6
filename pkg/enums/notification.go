package enums

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationTypeSellerSale NotificationType = "seller_sale"
)

func (n NotificationType) String() string {
	return string(n)
}
