package main

// uiWindow 抽象内嵌窗口：具体实现按平台经 build tag 选择。
type uiWindow interface {
	Run()
	Destroy()
}
