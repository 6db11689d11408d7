// Package desktop はfreedesktop.orgの通知仕様に従いD-Busでデスクトップ通知を表示する。
//
// 同じタグの通知は置き換え、通知のクリック（ActionInvokedシグナル）を
// リレーのクリック処理に渡す。
package desktop
