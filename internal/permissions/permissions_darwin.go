//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework AVFoundation
#import <AVFoundation/AVFoundation.h>

int checkMicrophonePermission() {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
    return (int)status;
}

void requestMicrophonePermission() {
    [AVCaptureDevice requestAccessForMediaType:AVMediaTypeAudio completionHandler:^(BOOL granted) {}];
}
*/
import "C"

import "fmt"

const (
	PermissionNotDetermined = 0
	PermissionRestricted    = 1
	PermissionDenied        = 2
	PermissionAuthorized    = 3
)

// CheckMicrophone returns the current microphone permission status
func CheckMicrophone() int {
	return int(C.checkMicrophonePermission())
}

// RequestMicrophone triggers the system microphone permission dialog
func RequestMicrophone() {
	C.requestMicrophonePermission()
}

// EnsurePermissions asks for microphone access when it has not been decided yet
// and fails when it has been refused.
func EnsurePermissions() error {
	switch CheckMicrophone() {
	case PermissionAuthorized:
		return nil
	case PermissionNotDetermined:
		RequestMicrophone()
		return fmt.Errorf("microphone permission requested, grant it and start again")
	default:
		return fmt.Errorf("microphone permission not granted: System Settings → Privacy & Security → Microphone")
	}
}
