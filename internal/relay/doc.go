// Package relay は通知リレーの内部実装を提供する。
//
// プッシュイベントを受け取るとピックアップAPIから通知の詳細を取得して
// 表示し、通知がクリックされると対象のページを前面に出すか新しく開く。
// 取得に失敗した場合はサインインを促す代替通知を表示する。
package relay
