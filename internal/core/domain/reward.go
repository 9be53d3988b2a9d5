package domain

// PlatformFeePercent is the platform's share of every mission reward.
const PlatformFeePercent = 25

// RewardSplit is how one reward is divided.
type RewardSplit struct {
	UserAmount  int64 `json:"user_amount"`
	PlatformFee int64 `json:"platform_fee"`
	Total       int64 `json:"total"`
}

// SplitReward divides total into the user's and the platform's share.
// The fee is rounded down, so UserAmount+PlatformFee == total for any input.
// Splitting into hundreds and remainder keeps the product inside int64.
func SplitReward(total int64) RewardSplit {
	fee := total/100*PlatformFeePercent + total%100*PlatformFeePercent/100
	return RewardSplit{
		UserAmount:  total - fee,
		PlatformFee: fee,
		Total:       total,
	}
}
