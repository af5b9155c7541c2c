package protocol

// AppInfo describes the client build a context impersonates
type AppInfo struct {
	Protocol         Protocol
	Os               string
	Kernel           string
	VendorOs         string
	CurrentVersion   string
	PackageName      string
	AppID            uint32
	SubAppID         uint32
	AppClientVersion uint32
	Qua              string
}

var appInfos = map[Protocol]AppInfo{
	Linux: {
		Protocol:         Linux,
		Os:               "Linux",
		Kernel:           "Linux",
		VendorOs:         "linux",
		CurrentVersion:   "3.2.19-39038",
		PackageName:      "com.tencent.qq",
		AppID:            1600001615,
		SubAppID:         537313942,
		AppClientVersion: 39038,
		Qua:              "V1_LNX_NQ_3.2.19_39038_GW_B",
	},
	MacOs: {
		Protocol:         MacOs,
		Os:               "Mac",
		Kernel:           "Darwin",
		VendorOs:         "mac",
		CurrentVersion:   "6.9.23-20139",
		PackageName:      "com.tencent.qq",
		AppID:            1600001602,
		SubAppID:         537200848,
		AppClientVersion: 20139,
		Qua:              "V1_MAC_NQ_6.9.23_20139_GW_B",
	},
	Windows: {
		Protocol:         Windows,
		Os:               "Windows",
		Kernel:           "Windows_NT",
		VendorOs:         "win32",
		CurrentVersion:   "9.9.2-15962",
		PackageName:      "com.tencent.qq",
		AppID:            1600001604,
		SubAppID:         537138217,
		AppClientVersion: 15962,
		Qua:              "V1_WIN_NQ_9.9.2_15962_GW_B",
	},
	AndroidPhone: {
		Protocol:         AndroidPhone,
		Os:               "Android",
		Kernel:           "Android",
		VendorOs:         "android",
		CurrentVersion:   "9.1.60.045f5d19",
		PackageName:      "com.tencent.mobileqq",
		AppID:            16,
		SubAppID:         537275636,
		AppClientVersion: 0,
		Qua:              "V1_AND_SQ_9.1.60_9388_YYB_D",
	},
	AndroidPad: {
		Protocol:         AndroidPad,
		Os:               "Android",
		Kernel:           "Android",
		VendorOs:         "android",
		CurrentVersion:   "9.1.60.045f5d19",
		PackageName:      "com.tencent.mobileqq",
		AppID:            16,
		SubAppID:         537275675,
		AppClientVersion: 0,
		Qua:              "V1_AND_SQ_9.1.60_9388_YYB_D",
	},
}

// DefaultAppInfo returns the built-in profile for a single platform
func DefaultAppInfo(p Protocol) (*AppInfo, error) {
	info, ok := appInfos[p]
	if !ok {
		return nil, &ProtocolError{Op: "app info", Reason: "no profile for " + p.String()}
	}
	return &info, nil
}
