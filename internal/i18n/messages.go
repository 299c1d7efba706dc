// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package i18n

// Message keys.
const (
	KeyGreeting = "greeting"
	KeyTitle    = "title"
	KeyReset    = "reset"
	KeyNewChat  = "new_chat"
	// KeyLanguageToggle names the language the toggle switches TO.
	KeyLanguageToggle = "language_toggle"
	KeyPlaceholder    = "placeholder"
	KeyThinking       = "thinking"

	KeyUploadFile     = "upload_file"
	KeyStartRecording = "start_recording"
	KeyStopRecording  = "stop_recording"
	KeyListening      = "listening"
	KeyAudioCaption   = "audio_caption"
	KeyVoiceMessage   = "voice_message"
	KeyDocument       = "document"
	KeyImage          = "image"
	KeyAttached       = "attached"
	KeyDetached       = "detached"
	KeyOpenFailed     = "open_failed"
	KeySources        = "sources"
	KeyNoSources      = "no_sources"
	KeyBusy           = "busy"
	KeyStopped        = "stopped"

	KeyNoMic     = "no_mic"
	KeyMicDenied = "mic_denied"
	KeyMicError  = "mic_error"

	KeyErrGeneric         = "err_generic"
	KeyErrUnknown         = "err_unknown"
	KeyErrConfig          = "err_config"
	KeyErrRateLimit       = "err_rate_limit"
	KeyErrSafety          = "err_safety"
	KeyErrUnsupportedMIME = "err_unsupported_mime"
	KeyErrTransient       = "err_transient"
	KeyErrTimeout         = "err_timeout"
)

const (
	genericErrorEN = "Sorry, I encountered an error processing your request. Please ensure the files are not too large and try again."
	genericErrorZH = "抱歉，處理您的請求時發生錯誤。請確保檔案不會太大並重試。"
)

var englishMessages = map[string]string{
	KeyGreeting: "Hello! I am ProcuBot, your expert procurement tutor. I can analyze multiple documents " +
		"(PDF, Word, PPT, Excel, Images) simultaneously. How can I assist you today?\n\n" +
		"您好！我是 ProcuBot，您的專業採購導師。我可以同時分析多份文件（如 PDF, Word, PPT, Excel, 圖片）。今天有什麼可以協助您的嗎？",
	KeyTitle:          "Procurement Pro",
	KeyReset:          "Reset",
	KeyNewChat:        "New Chat",
	KeyLanguageToggle: "中文",
	KeyPlaceholder:    "Ask about procurement... (Enter to send)",
	KeyThinking:       "Thinking...",

	KeyUploadFile:     "Upload File",
	KeyStartRecording: "Start Recording",
	KeyStopRecording:  "Stop Recording",
	KeyListening:      "Listening...",
	KeyAudioCaption:   "Please listen to this audio.",
	KeyVoiceMessage:   "Voice Message",
	KeyDocument:       "Document",
	KeyImage:          "Image",
	KeyAttached:       "Attached: %s",
	KeyDetached:       "Attachments cleared.",
	KeyOpenFailed:     "Could not open the attachment.",
	KeySources:        "Sources",
	KeyNoSources:      "No sources for the last response.",
	KeyBusy:           "Please wait for the current response to finish.",
	KeyStopped:        "Response stopped.",

	KeyNoMic:     "No microphone found. Please connect a microphone and try again.",
	KeyMicDenied: "Microphone permission denied. Please allow microphone access in your system settings.",
	KeyMicError:  "Could not access microphone. Please ensure permissions are granted.",

	KeyErrGeneric: genericErrorEN,
	KeyErrUnknown: genericErrorEN + "\n\nDetails: %s",
	KeyErrConfig: "Configuration error: the API key is missing or invalid. " +
		"Set API_KEY in your environment or config file, then reset the conversation.",
	KeyErrRateLimit: "The service is receiving too many requests or the quota is exhausted. " +
		"Please wait a moment and try again.",
	KeyErrSafety: "The response was blocked by content safety filters. " +
		"Please rephrase your question in a professional and objective way.",
	KeyErrUnsupportedMIME: "One of the attached files is in an unsupported format. " +
		"Please convert it to PDF, an image, or a supported Office format and try again.",
	KeyErrTransient: "The model is temporarily unavailable. Please try again, or reset the conversation.",
	KeyErrTimeout:   "The response took too long and was stopped. Please try again.",
}

var chineseMessages = map[string]string{
	KeyGreeting: "Hello! I am ProcuBot, your expert procurement tutor. I can analyze multiple documents " +
		"(PDF, Word, PPT, Excel, Images) simultaneously. How can I assist you today?\n\n" +
		"您好！我是 ProcuBot，您的專業採購導師。我可以同時分析多份文件（如 PDF, Word, PPT, Excel, 圖片）。今天有什麼可以協助您的嗎？",
	KeyTitle:          "採購智囊 Pro",
	KeyReset:          "重置",
	KeyNewChat:        "開啟新對話",
	KeyLanguageToggle: "English",
	KeyPlaceholder:    "詢問關於採購的問題... (Enter 發送)",
	KeyThinking:       "思考中...",

	KeyUploadFile:     "上傳檔案",
	KeyStartRecording: "開始錄音",
	KeyStopRecording:  "停止錄音",
	KeyListening:      "聆聽中...",
	KeyAudioCaption:   "請聽這段語音。",
	KeyVoiceMessage:   "語音訊息",
	KeyDocument:       "文件",
	KeyImage:          "圖片",
	KeyAttached:       "已附加：%s",
	KeyDetached:       "已清除附件。",
	KeyOpenFailed:     "無法開啟附件。",
	KeySources:        "資料來源",
	KeyNoSources:      "上一則回覆沒有資料來源。",
	KeyBusy:           "請等待目前的回覆完成。",
	KeyStopped:        "已停止回應。",

	KeyNoMic:     "找不到麥克風。請連接麥克風後再試。",
	KeyMicDenied: "麥克風權限被拒絕。請在系統設定中允許麥克風存取。",
	KeyMicError:  "無法存取麥克風。請確認權限已開啟。",

	KeyErrGeneric:         genericErrorZH,
	KeyErrUnknown:         genericErrorZH + "\n\n詳細資訊：%s",
	KeyErrConfig:          "設定錯誤：API 金鑰遺失或無效。請在環境變數或設定檔中設定 API_KEY，然後重置對話。",
	KeyErrRateLimit:       "服務請求過多或配額已用盡。請稍候片刻再試一次。",
	KeyErrSafety:          "回應已被內容安全機制封鎖。請以專業且客觀的方式重新表述您的問題。",
	KeyErrUnsupportedMIME: "附加的檔案格式不受支援。請轉換為 PDF、圖片或支援的 Office 格式後再試。",
	KeyErrTransient:       "模型暫時無法使用。請重試或重置對話。",
	KeyErrTimeout:         "回應時間過長，已停止。請重試。",
}
