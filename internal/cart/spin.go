package cart

type Reward string

const (
	RewardBalance Reward = "balance"
	RewardVoucher Reward = "voucher"
	RewardSticker Reward = "sticker"
	RewardNothing Reward = "nothing"
)

const (
	SpinBalanceBonus   int64 = 100000
	SpinVoucherPercent int64 = 10
)

var Rewards = []Reward{RewardBalance, RewardVoucher, RewardSticker, RewardNothing}

// SpinResult is the outcome of one spin round. Balance bonuses add up;
// any number of voucher rewards still grant a single voucher.
type SpinResult struct {
	Rewards        []Reward `json:"rewards"`
	BalanceBonus   int64    `json:"balance_bonus"`
	VoucherPercent int64    `json:"voucher_percent"`
	Stickers       int      `json:"stickers"`
}

// Spin draws count rewards uniformly.
func Spin(rng Rand, count int) SpinResult {
	res := SpinResult{Rewards: make([]Reward, 0, max(count, 0))}
	for range count {
		r := Rewards[rng.IntN(len(Rewards))]
		res.Rewards = append(res.Rewards, r)
		switch r {
		case RewardBalance:
			res.BalanceBonus += SpinBalanceBonus
		case RewardVoucher:
			res.VoucherPercent = SpinVoucherPercent
		case RewardSticker:
			res.Stickers++
		}
	}
	return res
}
