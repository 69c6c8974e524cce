package view

import (
	"encoding/json"
	"strconv"
)

// YesNo renders a boolean the way the content editor shows it.
func YesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// Availability is the stock badge of a product.
func Availability(available bool) string {
	if available {
		return "In Stock"
	}
	return "Out of Stock"
}

// CartAction is the label of the purchase button of a product.
func CartAction(available bool) string {
	if available {
		return "Add to Cart"
	}
	return "Notify When Available"
}

// Display renders a document value as text. Booleans become Yes or No;
// records and lists are shown as JSON.
func Display(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return YesNo(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
