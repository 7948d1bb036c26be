// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"github.com/vorlif/spreak/localize"

	"github.com/wneessen/district-locator/internal/orchestrator"
)

// NoticeMessages maps orchestrator notices to their user facing messages.
var NoticeMessages = map[orchestrator.Notice]localize.MsgID{
	orchestrator.NoticeLocationDenied:      "Location access was denied. Please choose your district manually.",
	orchestrator.NoticeLocationUnavailable: "Your location could not be determined. Trying an approximate location.",
	orchestrator.NoticeFallbackFailed:      "Approximate location failed. Please choose your district manually.",
	orchestrator.NoticeResolutionFailed:    "District lookup failed. Please choose your district manually.",
}

// MethodLabels maps resolution methods to a short label. MethodNone stands for a manual pick.
var MethodLabels = map[orchestrator.Method]localize.MsgID{
	orchestrator.MethodNone: "manual selection",
	orchestrator.MethodGPS:  "GPS",
	orchestrator.MethodWIFI: "WiFi",
	orchestrator.MethodIP:   "IP address",
}

var i18nVars = map[string]localize.MsgID{
	"confirmed":   "confirmed",
	"approximate": "Approximate location from your internet connection",
	"gps":         "GPS",
	"wifi":        "WiFi",
	"ip":          "IP address",
	"manual":      "manual selection",
}

// Hindi sentences read out by the audio player.
const (
	spokenTemplate        = "आपका ज़िला %s है"
	spokenPermission      = "अपना ज़िला पता करने के लिए लोकेशन की ज़रूरत है। कृपया अनुमति दें। मना करने पर आप ज़िला खुद चुन सकते हैं।"
	spokenConfirmTemplate = "क्या यह आपका ज़िला है? %s, दूरी %s"
)
