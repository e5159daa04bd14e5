// Package model はドメインモデルを定義する。
package model

// QueueType はグループサイズの希望を表す。
type QueueType string

// 定義済みキュー種別
const (
	QueueOneOnOne QueueType = "ONE_ON_ONE"
	QueueSmall    QueueType = "SMALL"
	QueueLarge    QueueType = "LARGE"
)

// Valid は既知のキュー種別かどうかを返す。
func (q QueueType) Valid() bool {
	switch q {
	case QueueOneOnOne, QueueSmall, QueueLarge:
		return true
	}
	return false
}

// UserBrief はキュー一覧に現れるユーザーの要約を表す。
type UserBrief struct {
	TelegramID  string `json:"telegram_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	JoinedAt    string `json:"joined_at"`
}

// QueuesResponse はキュー種別ごとの待機者一覧を表す。
type QueuesResponse struct {
	OneOnOne []UserBrief `json:"ONE_ON_ONE"`
	Small    []UserBrief `json:"SMALL"`
	Large    []UserBrief `json:"LARGE"`
}

// MatchStatus はマッチング結果の状態を表す。
type MatchStatus string

// マッチング状態。PENDINGの場合Groupは常に空。
const (
	MatchPending MatchStatus = "PENDING"
	MatchMatched MatchStatus = "MATCHED"
)

// MatchMember はマッチしたグループの1メンバーを表す。
type MatchMember struct {
	TelegramID  string `json:"telegram_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// MatchCurrentResponse は現在のマッチング状態を表すタグ付きレスポンス。
// オプショナルフィールドの探り読みではなくStatusで分岐する。
type MatchCurrentResponse struct {
	Status MatchStatus   `json:"status"`
	Group  []MatchMember `json:"group,omitempty"`
}

// Match は確定したマッチンググループを表す。
type Match struct {
	GroupID int64         `json:"group_id"`
	Members []MatchMember `json:"members"`
}

// AllMatchesResponse はマッチ履歴・サイクル別マッチ一覧のレスポンスを表す。
type AllMatchesResponse struct {
	Matches []Match `json:"matches"`
}
