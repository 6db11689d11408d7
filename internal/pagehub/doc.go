// Package pagehub は開いているページをWebSocketで管理する。
//
// ページは /ws?url=<ページのURL> に接続し、URLが変わるたびに
// {"message":"location","url":...} を送る。リレーは接続中のページに
// ナローメッセージやフォーカス要求を送り、一致するページがなければ
// Openerで新しいページを開く。
package pagehub
