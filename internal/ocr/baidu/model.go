package baidu

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`

	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type Response struct {
	LogID uint64 `json:"log_id"`

	WordsResultNum int    `json:"words_result_num"`
	WordsResult    []Word `json:"words_result"`

	ErrorCode int    `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

type Word struct {
	Words string `json:"words"`
}
