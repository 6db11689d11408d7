// Package push はプッシュ通知の受け渡しで使用するデータ構造を定義する。
//
// ピックアップAPIのレスポンス、表示中の通知に添付する非表示データ、
// 開いているページへ送るナローメッセージを含む。
// pickupサービスとrelayの双方がこのパッケージを共有する。
package push
