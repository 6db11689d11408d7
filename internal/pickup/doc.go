// Package pickup は通知ピックアップサービスの内部実装を提供する。
//
// ユーザーごとに未取得の通知ペイロードをSQLiteに保持し、リレーからの
// Basic認証付きリクエストに対して最も古いペイロードを1件ずつ返す。
// 通知の投入とユーザー作成はサービス間トークンで保護された内部APIで行う。
package pickup
